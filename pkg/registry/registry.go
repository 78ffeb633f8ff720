// pkg/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrNotFound indicates the registry has no entry for a dependency name
var ErrNotFound = errors.New("registry: package not found")

// Entry represents a single deps/<name>/index.toml file. It maps a
// canonical dependency name to the cache attribute the release endpoint
// publishes it under, plus metadata the materializer needs.
type Entry struct {
	Name      string            `toml:"name"`
	Attr      string            `toml:"attr"`
	Outputs   []string          `toml:"outputs"`
	Libs      []string          `toml:"libs"`
	Platforms map[string]string `toml:"platforms"`
}

// HasLibs reports whether the package ships library outputs that belong on
// the derived library search path
func (e *Entry) HasLibs() bool {
	return len(e.Libs) > 0
}

// AttrFor returns the cache attribute for a platform double. Per-platform
// overrides win over the default attribute.
func (e *Entry) AttrFor(platform string) string {
	if attr, ok := e.Platforms[platform]; ok {
		return attr
	}
	if e.Attr != "" {
		return e.Attr
	}
	return e.Name
}

// Registry provides lookup into the cached deps/ folder
type Registry struct {
	depsDir string
}

// New creates a Registry pointed at the cached deps directory
func New(cacheDir string) *Registry {
	return &Registry{
		depsDir: filepath.Join(cacheDir, "deps"),
	}
}

// Resolve takes a canonical dependency name and a platform double and
// returns the cache attribute to request from the release endpoint.
// e.g. Resolve("openssl", "x86_64-linux") -> "openssl"
func (r *Registry) Resolve(name, platform string) (string, error) {
	entry, err := r.Load(name)
	if err != nil {
		return "", err
	}
	return entry.AttrFor(platform), nil
}

// Load reads and parses deps/<name>/index.toml.
// This is the primary method for retrieving dependency metadata.
func (r *Registry) Load(name string) (*Entry, error) {
	if _, err := os.Stat(r.depsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("registry: deps not found, run sync first")
	}

	path := filepath.Join(r.depsDir, name, "index.toml")

	data, err := os.ReadFile(path)
	if err != nil {
		// Check if the directory exists, to give a better error message.
		dirPath := filepath.Dir(path)
		if _, statErr := os.Stat(dirPath); statErr == nil {
			return nil, fmt.Errorf("registry: found package '%s' directory, but missing index.toml", name)
		}
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}

	var entry Entry
	if _, err := toml.Decode(string(data), &entry); err != nil {
		return nil, fmt.Errorf("registry: failed to parse '%s': %w", name, err)
	}

	if entry.Name == "" {
		entry.Name = name
	}

	return &entry, nil
}
