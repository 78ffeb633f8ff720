package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNARInfo = `StorePath: /nix/store/abc123-openssl-3.0.13
URL: nar/1bn7c3bf.nar.xz
Compression: xz
FileHash: sha256:1bn7c3bfsomehash
FileSize: 1048576
NarHash: sha256:0other
NarSize: 4194304
References: abc123-openssl-3.0.13 def456-zlib-1.3
Deriver: xyz789-openssl-3.0.13.drv
Sig: cache.nixos.org-1:signaturedata
`

func TestParseNARInfo(t *testing.T) {
	info, err := ParseNARInfo(sampleNARInfo)
	require.NoError(t, err)

	assert.Equal(t, "/nix/store/abc123-openssl-3.0.13", info.StorePath)
	assert.Equal(t, "nar/1bn7c3bf.nar.xz", info.URL)
	assert.Equal(t, CompressionXZ, info.Compression)
	assert.Equal(t, "1bn7c3bfsomehash", info.FileHash, "sha256: prefix must be stripped")
	assert.Equal(t, int64(1048576), info.FileSize)
	assert.Equal(t, "0other", info.NarHash)
	assert.Equal(t, int64(4194304), info.NarSize)
	assert.Equal(t, []string{"abc123-openssl-3.0.13", "def456-zlib-1.3"}, info.References)
	assert.Equal(t, "xyz789-openssl-3.0.13.drv", info.Deriver)
	assert.Equal(t, "cache.nixos.org-1:signaturedata", info.Signature)
}

func TestParseNARInfoDefaultsCompression(t *testing.T) {
	info, err := ParseNARInfo("StorePath: /nix/store/abc-x\nURL: nar/abc.nar.bz2\n")
	require.NoError(t, err)
	assert.Equal(t, CompressionBZip2, info.Compression)
}

func TestParseNARInfoIgnoresJunk(t *testing.T) {
	content := "StorePath: /nix/store/abc-x\nURL: nar/a.nar.xz\nnot a key value line\nUnknownKey: whatever\n\n"
	info, err := ParseNARInfo(content)
	require.NoError(t, err)
	assert.Equal(t, "/nix/store/abc-x", info.StorePath)
}

func TestParseNARInfoErrors(t *testing.T) {
	_, err := ParseNARInfo("URL: nar/a.nar.xz\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StorePath")

	_, err = ParseNARInfo("StorePath: /nix/store/abc-x\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL")
}
