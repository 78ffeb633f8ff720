package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devshell-sh/devshell/pkg/manifest"
	"github.com/devshell-sh/devshell/pkg/platform"
	"github.com/devshell-sh/devshell/pkg/resolver"
)

func demoManifest(deps ...string) *manifest.Manifest {
	return &manifest.Manifest{
		Name:           "demo",
		Deps:           deps,
		LibraryPathVar: manifest.DefaultLibraryPathVar,
	}
}

func demoResolution() *resolver.Resolution {
	return &resolver.Resolution{
		Platform: platform.X8664Linux,
		Packages: []resolver.ResolvedPackage{
			{
				Name:    "openssl",
				Attr:    "openssl",
				Version: "openssl-3.0.13",
				Kind:    manifest.KindBuild,
				Outputs: map[string]string{"out": "aaa111"},
				HasLibs: true,
			},
		},
	}
}

func TestFingerprintStable(t *testing.T) {
	m := demoManifest("openssl", "zlib")
	first := Fingerprint(m)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fingerprint(m))
	}
}

func TestFingerprintChangesOnRemoval(t *testing.T) {
	assert.NotEqual(t,
		Fingerprint(demoManifest("openssl", "zlib")),
		Fingerprint(demoManifest("openssl")))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := demoManifest("openssl")
	lock := New(m, demoResolution())

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, lock.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(lock, loaded); diff != "" {
		t.Errorf("lock round trip mismatch (-saved +loaded):\n%s", diff)
	}
	require.NoError(t, loaded.Verify(m, platform.X8664Linux))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestVerifyStale(t *testing.T) {
	lock := New(demoManifest("openssl"), demoResolution())

	err := lock.Verify(demoManifest("openssl", "zlib"), platform.X8664Linux)
	assert.True(t, errors.Is(err, ErrStale))

	err = lock.Verify(demoManifest("openssl"), platform.Aarch64Darwin)
	assert.True(t, errors.Is(err, ErrStale))
}

func TestResolutionRoundTrip(t *testing.T) {
	res := demoResolution()
	lock := New(demoManifest("openssl"), res)

	if diff := cmp.Diff(res, lock.Resolution()); diff != "" {
		t.Errorf("resolution mismatch (-want +got):\n%s", diff)
	}
}
