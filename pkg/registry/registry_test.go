package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntry(t *testing.T, cacheDir, name, content string) {
	t.Helper()
	dir := filepath.Join(cacheDir, "deps", name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.toml"), []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	cacheDir := t.TempDir()
	writeEntry(t, cacheDir, "openssl", `
name = "openssl"
attr = "openssl"
outputs = ["out", "dev"]
libs = ["ssl", "crypto"]

[platforms]
"aarch64-darwin" = "openssl_3"
`)

	r := New(cacheDir)
	entry, err := r.Load("openssl")
	require.NoError(t, err)

	assert.Equal(t, "openssl", entry.Name)
	assert.True(t, entry.HasLibs())
	assert.Equal(t, []string{"out", "dev"}, entry.Outputs)
	assert.Equal(t, "openssl", entry.AttrFor("x86_64-linux"))
	assert.Equal(t, "openssl_3", entry.AttrFor("aarch64-darwin"))
}

func TestLoadDefaultsNameAndAttr(t *testing.T) {
	cacheDir := t.TempDir()
	writeEntry(t, cacheDir, "zlib", "libs = [\"z\"]\n")

	r := New(cacheDir)
	entry, err := r.Load("zlib")
	require.NoError(t, err)

	assert.Equal(t, "zlib", entry.Name)
	assert.Equal(t, "zlib", entry.AttrFor("x86_64-linux"))
}

func TestLoadNotFound(t *testing.T) {
	cacheDir := t.TempDir()
	writeEntry(t, cacheDir, "zlib", "name = \"zlib\"\n")

	r := New(cacheDir)
	_, err := r.Load("no-such-package")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadWithoutSync(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Load("openssl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run sync first")
}

func TestResolve(t *testing.T) {
	cacheDir := t.TempDir()
	writeEntry(t, cacheDir, "rustc", "attr = \"rustc-wrapper\"\n")

	r := New(cacheDir)
	attr, err := r.Resolve("rustc", "x86_64-linux")
	require.NoError(t, err)
	assert.Equal(t, "rustc-wrapper", attr)
}
