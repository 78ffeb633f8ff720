// pkg/manifest/manifest.go
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the manifest file looked up in the working directory
const DefaultFileName = "devshell.yaml"

// DefaultLibraryPathVar is the derived library search path variable
const DefaultLibraryPathVar = "LD_LIBRARY_PATH"

// Kind distinguishes build dependencies from tooling dependencies
type Kind string

const (
	// KindBuild marks a dependency whose library outputs feed the derived
	// library search path
	KindBuild Kind = "build"
	// KindTool marks a dependency that only contributes executables
	KindTool Kind = "tool"
)

// Package is a single declared dependency
type Package struct {
	Name string
	Kind Kind
}

// Manifest is the declarative description of a development environment
type Manifest struct {
	Name           string            `yaml:"name"`
	ToolchainFile  string            `yaml:"toolchain,omitempty"`
	Deps           []string          `yaml:"deps,omitempty"`
	Tools          []string          `yaml:"tools,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	LibraryPathVar string            `yaml:"library_path_var,omitempty"`

	toolchain *Toolchain
	dir       string
}

// Load reads and validates a manifest file. A toolchain file referenced by
// the manifest is resolved relative to the manifest's directory and merged
// into the dependency set.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)

	if m.ToolchainFile != "" {
		tc, err := LoadToolchain(filepath.Join(m.dir, m.ToolchainFile))
		if err != nil {
			return nil, fmt.Errorf("loading toolchain: %w", err)
		}
		m.toolchain = tc
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Parse decodes manifest bytes without touching the filesystem
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if m.LibraryPathVar == "" {
		m.LibraryPathVar = DefaultLibraryPathVar
	}

	return &m, nil
}

// Toolchain returns the pinned toolchain, or nil when none is referenced
func (m *Manifest) Toolchain() *Toolchain {
	return m.toolchain
}

// SetToolchain attaches a toolchain directly, bypassing file loading.
// Used by tests and by callers that resolve the pin themselves.
func (m *Manifest) SetToolchain(tc *Toolchain) {
	m.toolchain = tc
}

// Packages returns the full dependency set in deterministic order: the
// toolchain package first, then build dependencies, then tools, each group
// sorted by name.
func (m *Manifest) Packages() []Package {
	var pkgs []Package

	if m.toolchain != nil {
		pkgs = append(pkgs, Package{Name: m.toolchain.Package, Kind: KindBuild})
	}

	deps := append([]string(nil), m.Deps...)
	sort.Strings(deps)
	for _, name := range deps {
		pkgs = append(pkgs, Package{Name: name, Kind: KindBuild})
	}

	tools := append([]string(nil), m.Tools...)
	sort.Strings(tools)
	for _, name := range tools {
		pkgs = append(pkgs, Package{Name: name, Kind: KindTool})
	}

	return pkgs
}

// Canonical renders the manifest to stable bytes suitable for
// fingerprinting. Field order is fixed, lists and env keys are sorted, so
// two semantically identical manifests always produce the same bytes.
func (m *Manifest) Canonical() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "name=%s\n", m.Name)
	if m.toolchain != nil {
		fmt.Fprintf(&buf, "toolchain=%s@%s\n", m.toolchain.Package, m.toolchain.Channel)
	}

	for _, pkg := range m.Packages() {
		fmt.Fprintf(&buf, "pkg=%s:%s\n", pkg.Kind, pkg.Name)
	}

	keys := make([]string, 0, len(m.Env))
	for k := range m.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		// Values are quoted so a value containing a newline cannot forge
		// extra canonical lines.
		fmt.Fprintf(&buf, "env=%s=%q\n", k, m.Env[k])
	}

	fmt.Fprintf(&buf, "libvar=%s\n", m.LibraryPathVar)

	return buf.Bytes()
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}

	seen := make(map[string]Kind)
	for _, pkg := range m.Packages() {
		if !validPackageName(pkg.Name) {
			return fmt.Errorf("manifest: invalid dependency name '%s'", pkg.Name)
		}
		if prev, ok := seen[pkg.Name]; ok {
			if prev != pkg.Kind {
				return fmt.Errorf("manifest: '%s' declared as both dep and tool", pkg.Name)
			}
			return fmt.Errorf("manifest: duplicate dependency '%s'", pkg.Name)
		}
		seen[pkg.Name] = pkg.Kind
	}

	for key := range m.Env {
		if !validEnvKey(key) {
			return fmt.Errorf("manifest: invalid environment variable name '%s'", key)
		}
	}

	if m.LibraryPathVar != "" && !validEnvKey(m.LibraryPathVar) {
		return fmt.Errorf("manifest: invalid library_path_var '%s'", m.LibraryPathVar)
	}

	return nil
}

// validPackageName rejects names that would escape the registry layout.
// Names become path components under the deps directory.
func validPackageName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}

// validEnvKey reports whether s is a portable shell identifier
func validEnvKey(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
