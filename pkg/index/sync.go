// pkg/index/sync.go
package index

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	// DefaultRepoURL hosts the deps/ registry content
	DefaultRepoURL = "https://github.com/devshell-sh/registry"
	// DefaultBranch is the branch the registry is published from
	DefaultBranch = "main"
)

// Options configures a registry sync
type Options struct {
	RepoURL  string
	Branch   string
	Progress io.Writer
}

// Sync shallow-clones the registry repository and copies the deps/ tree
// into the cache directory, replacing whatever was there before.
func Sync(cacheDir string, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	if opts.RepoURL == "" {
		opts.RepoURL = DefaultRepoURL
	}
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}

	tempDir, err := os.MkdirTemp("", "devshell-clone-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	_, err = git.PlainClone(tempDir, false, &git.CloneOptions{
		URL:           opts.RepoURL,
		ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
		SingleBranch:  true,
		Depth:         1,
		Progress:      opts.Progress,
	})
	if err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}

	srcDeps := filepath.Join(tempDir, "deps")
	dstDeps := filepath.Join(cacheDir, "deps")

	// Stage into a sibling directory so a failed copy never leaves the
	// registry half-replaced.
	staging := dstDeps + ".new"
	os.RemoveAll(staging)
	if err := copyDir(srcDeps, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("copying deps registry: %w", err)
	}

	os.RemoveAll(dstDeps)
	if err := os.Rename(staging, dstDeps); err != nil {
		return fmt.Errorf("installing deps registry: %w", err)
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}
