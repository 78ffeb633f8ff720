// pkg/environ/library.go
package environ

import (
	"os"
	"path/filepath"
	"strings"
)

// Library represents a found library file
type Library struct {
	Name     string // Library name (e.g., "ssl")
	Path     string // Absolute path to library file
	Type     string // Extension: ".so", ".a", ".dylib", ".dll", ".lib"
	IsStatic bool   // True for .a/.lib files
}

// FindLibrary searches the delta's library paths for a library by name,
// trying unversioned then versioned filenames (libssl.so, libssl.so.3)
func (d *Delta) FindLibrary(name string) *Library {
	for _, dir := range d.LibPaths {
		for _, ext := range LibraryExtensions() {
			filename := "lib" + name + ext
			fullPath := filepath.Join(dir, filename)

			if fileExists(fullPath) {
				return &Library{
					Name:     name,
					Path:     fullPath,
					Type:     ext,
					IsStatic: ext == ".a" || ext == ".lib",
				}
			}

			matches, _ := filepath.Glob(filepath.Join(dir, filename+".*"))
			if len(matches) > 0 {
				return &Library{
					Name:     name,
					Path:     matches[0],
					Type:     ext,
					IsStatic: ext == ".a" || ext == ".lib",
				}
			}
		}
	}

	return nil
}

// FindAllLibraries returns every library reachable through the delta's
// library paths, deduplicated by path
func (d *Delta) FindAllLibraries() []*Library {
	var libraries []*Library
	seen := make(map[string]bool)

	for _, dir := range d.LibPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			name := entry.Name()
			for _, ext := range LibraryExtensions() {
				if !strings.HasSuffix(name, ext) && !strings.Contains(name, ext+".") {
					continue
				}

				fullPath := filepath.Join(dir, name)
				if seen[fullPath] {
					break
				}
				seen[fullPath] = true

				libName := strings.TrimPrefix(name, "lib")
				libName = strings.Split(libName, ".")[0]

				libraries = append(libraries, &Library{
					Name:     libName,
					Path:     fullPath,
					Type:     ext,
					IsStatic: ext == ".a" || ext == ".lib",
				})
				break
			}
		}
	}

	return libraries
}

// MissingLibraries cross-checks declared library names against what the
// materialized prefixes actually contain. Used for post-materialization
// diagnostics.
func (d *Delta) MissingLibraries(declared []string) []string {
	var missing []string
	for _, name := range declared {
		if d.FindLibrary(name) == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
