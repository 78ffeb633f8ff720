// pkg/environ/environ.go
package environ

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devshell-sh/devshell/pkg/manifest"
	"github.com/devshell-sh/devshell/pkg/resolver"
)

// MarkerVar is set in every launched environment so nested activation can
// be detected
const MarkerVar = "DEVSHELL"

// Delta is the computed difference a materialized environment applies on
// top of the parent process environment
type Delta struct {
	// BinPaths are executable directories, one per package that ships
	// one, ordered by package name
	BinPaths []string

	// LibPaths feed the derived library search path variable: exactly one
	// entry per unique build dependency with a library output, ordered by
	// package name
	LibPaths []string

	// Vars are the static manifest variables plus the derived library
	// path variable
	Vars map[string]string

	// LibraryPathVar names the derived variable (LD_LIBRARY_PATH unless
	// the manifest overrides it)
	LibraryPathVar string

	// Name is the manifest name, exported as the marker value
	Name string
}

// Compute builds the environment delta for a materialized resolution.
// Resolution packages are already name-sorted, so the computed paths are
// deterministic: materializing the same resolution twice yields identical
// deltas.
func Compute(storeRoot string, m *manifest.Manifest, res *resolver.Resolution) *Delta {
	d := &Delta{
		Vars:           make(map[string]string, len(m.Env)+1),
		LibraryPathVar: m.LibraryPathVar,
		Name:           m.Name,
	}
	if d.LibraryPathVar == "" {
		d.LibraryPathVar = manifest.DefaultLibraryPathVar
	}

	for i := range res.Packages {
		pkg := &res.Packages[i]
		prefix := filepath.Join(storeRoot, pkg.StoreName())

		for _, dir := range binDirs {
			if path := filepath.Join(prefix, dir); dirExists(path) {
				d.BinPaths = append(d.BinPaths, path)
				break
			}
		}

		// Tools never contribute to the library search path, and each
		// build dependency contributes at most one entry.
		if pkg.Kind != manifest.KindBuild || !pkg.HasLibs {
			continue
		}
		for _, dir := range libDirs {
			if path := filepath.Join(prefix, dir); dirExists(path) {
				d.LibPaths = append(d.LibPaths, path)
				break
			}
		}
	}

	for key, value := range m.Env {
		d.Vars[key] = value
	}
	if len(d.LibPaths) > 0 {
		d.Vars[d.LibraryPathVar] = strings.Join(d.LibPaths, string(os.PathListSeparator))
	}

	return d
}

// Environ merges the delta onto a base environment (os.Environ format).
// Bin paths are prepended to PATH; delta variables replace base values;
// the marker variable records the environment name.
func (d *Delta) Environ(base []string) []string {
	env := make(map[string]string, len(base)+len(d.Vars)+2)
	for _, kv := range base {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}

	if len(d.BinPaths) > 0 {
		path := strings.Join(d.BinPaths, string(os.PathListSeparator))
		if existing := env["PATH"]; existing != "" {
			path += string(os.PathListSeparator) + existing
		}
		env["PATH"] = path
	}

	for key, value := range d.Vars {
		env[key] = value
	}
	env[MarkerVar] = d.Name

	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make([]string, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, key+"="+env[key])
	}
	return merged
}

// Exports renders the delta as shell export lines for non-interactive
// consumers (eval "$(devshell shell --print-env)"). Output is sorted and
// stable.
func (d *Delta) Exports() []string {
	var lines []string

	if len(d.BinPaths) > 0 {
		path := strings.Join(d.BinPaths, string(os.PathListSeparator))
		lines = append(lines, fmt.Sprintf(`export PATH=%s:"$PATH"`, shellQuote(path)))
	}

	keys := make([]string, 0, len(d.Vars))
	for key := range d.Vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("export %s=%s", key, shellQuote(d.Vars[key])))
	}

	lines = append(lines, fmt.Sprintf("export %s=%s", MarkerVar, shellQuote(d.Name)))
	return lines
}

// shellQuote single-quotes a value for POSIX shells
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
