// pkg/cache/fetch.go
package cache

import (
	"bufio"
	"compress/bzip2"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
	"zombiezen.com/go/nix/nar"
	"zombiezen.com/go/nix/nixbase32"
)

// ErrHashMismatch indicates a downloaded archive failed verification
// against its narinfo hash
var ErrHashMismatch = errors.New("cache: hash mismatch")

// FetchOptions configures a single store object fetch
type FetchOptions struct {
	VerifyHash  bool // Verify the archive hash against the narinfo (default in Fetcher.Fetch: true)
	KeepArchive bool // Keep the downloaded archive next to the destination
}

// Fetcher downloads store objects from a binary cache and unpacks them
// into local prefixes
type Fetcher struct {
	client *Client
	logger *log.Logger
}

// NewFetcher creates a Fetcher. A nil logger discards all output.
func NewFetcher(client *Client, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// Fetch downloads the NAR described by info, verifies it, and unpacks it
// into destDir. Outputs fetched into the same destDir merge, matching how
// a package's bin/dev/lib outputs combine into one prefix.
func (f *Fetcher) Fetch(ctx context.Context, info *NARInfo, destDir string, opts *FetchOptions) error {
	if opts == nil {
		opts = &FetchOptions{VerifyHash: true}
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	archivePath := destDir + ".nar." + info.Compression
	if err := f.downloadNAR(ctx, info, archivePath); err != nil {
		return err
	}
	if !opts.KeepArchive {
		defer os.Remove(archivePath)
	}

	if opts.VerifyHash {
		if err := f.verifyFileHash(archivePath, info.FileHash); err != nil {
			return fmt.Errorf("hash verification failed: %w", err)
		}
	}

	if err := f.extractNAR(archivePath, destDir, info.Compression); err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	return nil
}

// downloadNAR downloads the NAR archive
func (f *Fetcher) downloadNAR(ctx context.Context, info *NARInfo, destPath string) error {
	f.logger.Printf("Downloading NAR: %s", info.URL)

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	if err := f.client.Download(ctx, info.URL, out); err != nil {
		return fmt.Errorf("downloading: %w", err)
	}

	f.logger.Printf("Downloaded %d bytes to %s", info.FileSize, destPath)
	return nil
}

// verifyFileHash checks the SHA-256 of a downloaded archive against the
// base32-encoded hash from the narinfo
func (f *Fetcher) verifyFileHash(path, expectedHash string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer in.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return fmt.Errorf("computing hash: %w", err)
	}

	actual := nixbase32.EncodeToString(hasher.Sum(nil))
	if actual != expectedHash {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, expectedHash, actual)
	}

	return nil
}

// extractNAR decompresses and unpacks a NAR archive into destDir
func (f *Fetcher) extractNAR(archivePath, destDir, compression string) error {
	in, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer in.Close()

	var reader io.Reader
	switch compression {
	case CompressionXZ:
		xzReader, err := xz.NewReader(bufio.NewReader(in))
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzReader
	case CompressionBZip2:
		reader = bzip2.NewReader(bufio.NewReader(in))
	case CompressionNone:
		reader = bufio.NewReader(in)
	default:
		return fmt.Errorf("unsupported compression: %s", compression)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	return f.unpack(nar.NewReader(reader), destDir)
}

// unpack writes every NAR entry below destDir
func (f *Fetcher) unpack(nr *nar.Reader, destDir string) error {
	fileCount := 0

	for {
		hdr, err := nr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading NAR entry: %w", err)
		}

		targetPath := filepath.Join(destDir, hdr.Path)

		switch hdr.Mode.Type() {
		case os.ModeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", targetPath, err)
			}

		case os.ModeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}
			// Merged outputs can legitimately re-declare the same link.
			os.Remove(targetPath)
			if err := os.Symlink(hdr.LinkTarget, targetPath); err != nil {
				return fmt.Errorf("creating symlink: %w", err)
			}

		case 0: // Regular file
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}

			perm := os.FileMode(0644)
			if hdr.Mode&0111 != 0 {
				perm = 0755
			}

			out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
			if err != nil {
				return fmt.Errorf("creating file %s: %w", targetPath, err)
			}

			written, err := io.Copy(out, nr)
			out.Close()
			if err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
			if written != hdr.Size {
				return fmt.Errorf("size mismatch for %s: wrote %d, want %d", hdr.Path, written, hdr.Size)
			}
			fileCount++

		default:
			// Ignore other types
		}
	}

	f.logger.Printf("Extraction complete (%d files)", fileCount)
	return nil
}
