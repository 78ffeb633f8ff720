// pkg/environ/layout.go
package environ

import "runtime"

// Store objects unpack to a flat prefix: bin/, lib/, lib64/, include/,
// lib/pkgconfig/. These are the directories the delta computation probes.
var (
	binDirs = []string{"bin"}
	libDirs = []string{"lib", "lib64"}
)

// LibraryExtensions returns the library file extensions for the running OS
func LibraryExtensions() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{".dylib", ".a"}
	case "windows":
		return []string{".dll", ".lib"}
	default: // linux, etc.
		return []string{".so", ".a"}
	}
}

// SharedLibraryExtensions returns only the shared library extensions
func SharedLibraryExtensions() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{".dylib"}
	case "windows":
		return []string{".dll"}
	default:
		return []string{".so"}
	}
}
