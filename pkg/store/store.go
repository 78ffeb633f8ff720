// pkg/store/store.go
package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/devshell-sh/devshell/pkg/cache"
	"github.com/devshell-sh/devshell/pkg/resolver"
)

// markerName flags a store object as fully materialized. Anything without
// it is a partial download and gets re-fetched.
const markerName = ".devshell-ok"

// lockName is the cross-process lock file at the store root
const lockName = ".lock"

// fetchParallelism bounds concurrent package downloads
const fetchParallelism = 4

// MaterializeOptions configures Materialize
type MaterializeOptions struct {
	Force bool // Re-fetch objects that are already present
}

// Store is the local prefix tree packages are materialized into: one
// directory per store object, all outputs of a package merged.
type Store struct {
	root    string
	client  *cache.Client
	fetcher *cache.Fetcher
	logger  *log.Logger
	group   singleflight.Group
}

// DefaultRoot returns the store location under the user cache directory
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "devshell", "store")
	}
	return filepath.Join(home, ".cache", "devshell", "store")
}

// New creates a Store rooted at root. A nil logger discards all output.
func New(root string, client *cache.Client, logger *log.Logger) *Store {
	if root == "" {
		root = DefaultRoot()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		root:    root,
		client:  client,
		fetcher: cache.NewFetcher(client, logger),
		logger:  logger,
	}
}

// Root returns the store root directory
func (s *Store) Root() string {
	return s.root
}

// PathFor returns the prefix directory of a resolved package
func (s *Store) PathFor(pkg *resolver.ResolvedPackage) string {
	return filepath.Join(s.root, pkg.StoreName())
}

// Has reports whether a package is fully materialized
func (s *Store) Has(pkg *resolver.ResolvedPackage) bool {
	_, err := os.Stat(filepath.Join(s.PathFor(pkg), markerName))
	return err == nil
}

// Materialize fetches every package of the resolution into the store.
// Packages download in parallel; the store is locked against concurrent
// devshell processes for the duration. Already-present objects are skipped
// unless opts.Force is set.
func (s *Store) Materialize(ctx context.Context, res *resolver.Resolution, opts *MaterializeOptions) error {
	if opts == nil {
		opts = &MaterializeOptions{}
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating store root: %w", err)
	}

	fl := flock.New(filepath.Join(s.root, lockName))
	locked, err := fl.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	if !locked {
		return fmt.Errorf("store is locked by another process")
	}
	defer fl.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)

	for i := range res.Packages {
		pkg := &res.Packages[i]
		g.Go(func() error {
			if err := s.materializeOne(gctx, pkg, opts.Force); err != nil {
				return fmt.Errorf("materializing '%s': %w", pkg.Name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// materializeOne fetches all outputs of one package into its prefix.
// singleflight collapses duplicate requests for the same store object
// within the process.
func (s *Store) materializeOne(ctx context.Context, pkg *resolver.ResolvedPackage, force bool) error {
	_, err, _ := s.group.Do(pkg.StoreName(), func() (any, error) {
		destDir := s.PathFor(pkg)

		if s.Has(pkg) && !force {
			s.logger.Printf("Store object present, skipping: %s", pkg.StoreName())
			return nil, nil
		}

		// A dir without the marker is a leftover partial; start clean.
		if err := os.RemoveAll(destDir); err != nil {
			return nil, fmt.Errorf("clearing partial object: %w", err)
		}

		// Deterministic output order, so merge conflicts resolve the same
		// way on every run.
		outputs := make([]string, 0, len(pkg.Outputs))
		for name := range pkg.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)

		for _, output := range outputs {
			hash := pkg.Outputs[output]
			s.logger.Printf("Fetching %s output '%s' (%s)", pkg.Name, output, hash)

			info, err := s.client.NARInfo(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("output '%s': %w", output, err)
			}

			if err := s.fetcher.Fetch(ctx, info, destDir, &cache.FetchOptions{VerifyHash: true}); err != nil {
				return nil, fmt.Errorf("output '%s': %w", output, err)
			}
		}

		if err := os.WriteFile(filepath.Join(destDir, markerName), nil, 0644); err != nil {
			return nil, fmt.Errorf("writing marker: %w", err)
		}

		s.logger.Printf("Materialized %s (%d outputs)", pkg.StoreName(), len(outputs))
		return nil, nil
	})
	return err
}

// GC removes store objects not referenced by the resolution. Returns the
// names of removed objects.
func (s *Store) GC(res *resolver.Resolution) ([]string, error) {
	referenced := make(map[string]bool, len(res.Packages))
	for i := range res.Packages {
		referenced[res.Packages[i].StoreName()] = true
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store root: %w", err)
	}

	fl := flock.New(filepath.Join(s.root, lockName))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking store: %w", err)
	}
	defer fl.Unlock()

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || referenced[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("removing '%s': %w", entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}

	sort.Strings(removed)
	return removed, nil
}
