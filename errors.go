// errors.go
package devshell

import (
	"fmt"

	"github.com/devshell-sh/devshell/pkg/cache"
	"github.com/devshell-sh/devshell/pkg/lockfile"
	"github.com/devshell-sh/devshell/pkg/registry"
	"github.com/devshell-sh/devshell/pkg/shell"
)

var (
	// ErrPackageNotFound indicates a dependency name has no registry entry
	ErrPackageNotFound = registry.ErrNotFound

	// ErrHashMismatch indicates a downloaded archive failed verification
	ErrHashMismatch = cache.ErrHashMismatch

	// ErrLockStale indicates the lock file no longer matches the manifest
	ErrLockStale = lockfile.ErrStale

	// ErrNestedShell indicates an attempt to enter an environment from
	// inside another one
	ErrNestedShell = shell.ErrNested
)

// Error wraps an error with additional context
type Error struct {
	Op      string // Operation that failed
	Package string // Package name if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
