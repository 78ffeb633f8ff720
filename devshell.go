// devshell.go
package devshell

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/devshell-sh/devshell/pkg/cache"
	"github.com/devshell-sh/devshell/pkg/config"
	"github.com/devshell-sh/devshell/pkg/environ"
	"github.com/devshell-sh/devshell/pkg/index"
	"github.com/devshell-sh/devshell/pkg/lockfile"
	"github.com/devshell-sh/devshell/pkg/manifest"
	"github.com/devshell-sh/devshell/pkg/platform"
	"github.com/devshell-sh/devshell/pkg/registry"
	"github.com/devshell-sh/devshell/pkg/resolver"
	"github.com/devshell-sh/devshell/pkg/shell"
	"github.com/devshell-sh/devshell/pkg/store"
)

// Re-export core types for convenience
type (
	Config          = config.Config
	Manifest        = manifest.Manifest
	Package         = manifest.Package
	Platform        = platform.Platform
	Resolution      = resolver.Resolution
	ResolvedPackage = resolver.ResolvedPackage
	Lock            = lockfile.Lock
	Delta           = environ.Delta
	// RegistryEntry is the metadata for a dependency from the deps/
	// registry. Re-exported so external tools can access it.
	RegistryEntry = registry.Entry
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return config.Default()
}

// Session drives the full pipeline for one manifest: load, resolve,
// materialize, enter.
type Session struct {
	config   *config.Config
	manifest *manifest.Manifest
	platform platform.Platform
	lockPath string

	registry *registry.Registry
	resolver *resolver.Resolver
	store    *store.Store
	logger   *log.Logger
}

// NewSession loads the manifest and wires the pipeline. If the registry
// cache has never been synced, it is synced first.
func NewSession(manifestPath string, cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if manifestPath == "" {
		manifestPath = manifest.DefaultFileName
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Debug {
		logger = log.New(os.Stderr, "[devshell] ", log.LstdFlags)
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}

	plat := platform.Platform(cfg.Platform)
	if plat == "" {
		plat, err = platform.Detect()
		if err != nil {
			return nil, &Error{Op: "detect platform", Err: err}
		}
	}
	if !plat.IsValid() {
		return nil, &Error{Op: "detect platform", Err: fmt.Errorf("unknown platform '%s'", plat)}
	}

	// Sync if the deps registry doesn't exist yet
	depsDir := filepath.Join(cfg.CachePath, "deps")
	if _, err := os.Stat(depsDir); os.IsNotExist(err) {
		if err := syncIndex(cfg); err != nil {
			return nil, &Error{Op: "sync registry", Err: err}
		}
	}

	client := cache.NewClient(cfg.CacheURL, cfg.Timeout)
	reg := registry.New(cfg.CachePath)

	return &Session{
		config:   cfg,
		manifest: m,
		platform: plat,
		lockPath: filepath.Join(filepath.Dir(manifestPath), lockfile.DefaultFileName),
		registry: reg,
		resolver: resolver.New(reg, client, cfg.Endpoint, logger),
		store:    store.New(cfg.StoreRoot, client, logger),
		logger:   logger,
	}, nil
}

// Manifest returns the loaded manifest
func (s *Session) Manifest() *manifest.Manifest {
	return s.manifest
}

// Platform returns the target platform
func (s *Session) Platform() platform.Platform {
	return s.platform
}

// StoreRoot returns the local store root
func (s *Session) StoreRoot() string {
	return s.store.Root()
}

// Resolve pins every manifest dependency. A valid lock file is reused so
// repeated invocations are reproducible; a stale or missing lock triggers
// fresh resolution and the lock is rewritten. force bypasses the lock.
func (s *Session) Resolve(ctx context.Context, force bool) (*resolver.Resolution, error) {
	if !force {
		if lock, err := lockfile.Load(s.lockPath); err == nil {
			if verr := lock.Verify(s.manifest, s.platform); verr == nil {
				s.logger.Printf("Lock file valid, reusing resolution")
				return lock.Resolution(), nil
			}
			s.logger.Printf("Lock file stale, re-resolving")
		}
	}

	res, err := s.resolver.Resolve(ctx, s.manifest, s.platform)
	if err != nil {
		return nil, &Error{Op: "resolve", Err: err}
	}

	if err := lockfile.New(s.manifest, res).Save(s.lockPath); err != nil {
		return nil, &Error{Op: "write lock", Err: err}
	}

	return res, nil
}

// CheckLock verifies the lock file against the manifest without resolving
func (s *Session) CheckLock() error {
	lock, err := lockfile.Load(s.lockPath)
	if err != nil {
		return &Error{Op: "read lock", Err: err}
	}
	return lock.Verify(s.manifest, s.platform)
}

// Materialize fetches every resolved package into the local store
func (s *Session) Materialize(ctx context.Context, res *resolver.Resolution, force bool) error {
	err := s.store.Materialize(ctx, res, &store.MaterializeOptions{Force: force})
	if err != nil {
		return &Error{Op: "materialize", Err: err}
	}
	return nil
}

// Delta computes the environment delta for a materialized resolution
func (s *Session) Delta(res *resolver.Resolution) *environ.Delta {
	return environ.Compute(s.store.Root(), s.manifest, res)
}

// Enter runs the full pipeline and launches the shell (or prints export
// lines when not attached to a terminal)
func (s *Session) Enter(ctx context.Context, opts *shell.Options) error {
	res, err := s.Resolve(ctx, false)
	if err != nil {
		return err
	}

	if err := s.Materialize(ctx, res, false); err != nil {
		return err
	}

	delta := s.Delta(res)
	if s.config.Debug {
		for _, name := range s.missingLibs(delta, res) {
			s.logger.Printf("Warning: declared library '%s' not found in materialized prefixes", name)
		}
	}

	return shell.New(delta, s.logger).LaunchWithOptions(ctx, opts)
}

// GC removes store objects not referenced by the current resolution
func (s *Session) GC(ctx context.Context) ([]string, error) {
	res, err := s.Resolve(ctx, false)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.GC(res)
	if err != nil {
		return removed, &Error{Op: "gc", Err: err}
	}
	return removed, nil
}

// Registry exposes dependency metadata lookup
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// missingLibs cross-checks the registry's declared library names against
// the materialized prefixes
func (s *Session) missingLibs(delta *environ.Delta, res *resolver.Resolution) []string {
	var declared []string
	for i := range res.Packages {
		pkg := &res.Packages[i]
		if !pkg.HasLibs {
			continue
		}
		entry, err := s.registry.Load(pkg.Name)
		if err != nil {
			continue
		}
		declared = append(declared, entry.Libs...)
	}
	return delta.MissingLibraries(declared)
}

// SyncIndex refreshes the registry cache from its git repository
func SyncIndex(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	return syncIndex(cfg)
}

func syncIndex(cfg *config.Config) error {
	opts := &index.Options{
		RepoURL: cfg.RegistryURL,
		Branch:  cfg.RegistryBranch,
	}
	if cfg.Debug {
		opts.Progress = os.Stderr
	}
	return index.Sync(cfg.CachePath, opts)
}
