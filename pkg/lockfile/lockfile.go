// pkg/lockfile/lockfile.go
package lockfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/devshell-sh/devshell/pkg/manifest"
	"github.com/devshell-sh/devshell/pkg/platform"
	"github.com/devshell-sh/devshell/pkg/resolver"
)

// DefaultFileName is the lock file written next to the manifest
const DefaultFileName = "devshell.lock"

// ErrStale indicates the lock no longer matches the manifest
var ErrStale = errors.New("lockfile: stale, manifest changed since resolution")

// Lock pins a manifest's full resolution. The fingerprint ties the lock to
// the exact manifest content it was resolved from, so any edit to the
// dependency set forces re-resolution.
type Lock struct {
	Fingerprint string                     `yaml:"fingerprint"`
	Platform    platform.Platform          `yaml:"platform"`
	Packages    []resolver.ResolvedPackage `yaml:"packages"`
}

// Fingerprint computes the manifest fingerprint recorded in locks
func Fingerprint(m *manifest.Manifest) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(m.Canonical()))
}

// New builds a lock from a manifest and its resolution
func New(m *manifest.Manifest, res *resolver.Resolution) *Lock {
	return &Lock{
		Fingerprint: Fingerprint(m),
		Platform:    res.Platform,
		Packages:    res.Packages,
	}
}

// Load reads a lock file. A missing file is reported via os.IsNotExist.
func Load(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}

	if lock.Fingerprint == "" {
		return nil, fmt.Errorf("lock file: missing fingerprint")
	}

	return &lock, nil
}

// Save writes the lock file
func (l *Lock) Save(path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}

	return nil
}

// Verify checks the lock against the manifest and target platform. Returns
// ErrStale on any drift.
func (l *Lock) Verify(m *manifest.Manifest, plat platform.Platform) error {
	if l.Fingerprint != Fingerprint(m) {
		return ErrStale
	}
	if l.Platform != plat {
		return fmt.Errorf("%w: locked for %s, running on %s", ErrStale, l.Platform, plat)
	}
	return nil
}

// Resolution reconstructs the pinned resolution
func (l *Lock) Resolution() *resolver.Resolution {
	return &resolver.Resolution{
		Platform: l.Platform,
		Packages: l.Packages,
	}
}
