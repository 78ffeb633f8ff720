package environ

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devshell-sh/devshell/pkg/manifest"
	"github.com/devshell-sh/devshell/pkg/platform"
	"github.com/devshell-sh/devshell/pkg/resolver"
)

// fakePrefix creates a store object directory with the given
// subdirectories, dropping a placeholder file into each
func fakePrefix(t *testing.T, storeRoot, storeName string, subdirs ...string) {
	t.Helper()
	for _, sub := range subdirs {
		dir := filepath.Join(storeRoot, storeName, sub)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "placeholder"), nil, 0644))
	}
}

func buildPkg(name, hash string, hasLibs bool) resolver.ResolvedPackage {
	return resolver.ResolvedPackage{
		Name:    name,
		Version: name + "-1.0",
		Kind:    manifest.KindBuild,
		Outputs: map[string]string{"out": hash},
		HasLibs: hasLibs,
	}
}

func toolPkg(name, hash string) resolver.ResolvedPackage {
	return resolver.ResolvedPackage{
		Name:    name,
		Version: name + "-1.0",
		Kind:    manifest.KindTool,
		Outputs: map[string]string{"out": hash},
	}
}

func TestCompute(t *testing.T) {
	storeRoot := t.TempDir()
	fakePrefix(t, storeRoot, "aaa-openssl-1.0", "bin", "lib")
	fakePrefix(t, storeRoot, "bbb-rustfmt-1.0", "bin")
	fakePrefix(t, storeRoot, "ccc-zlib-1.0", "lib")

	m := &manifest.Manifest{
		Name:           "demo",
		Deps:           []string{"openssl", "zlib"},
		Tools:          []string{"rustfmt"},
		Env:            map[string]string{"RUST_BACKTRACE": "1"},
		LibraryPathVar: manifest.DefaultLibraryPathVar,
	}
	res := &resolver.Resolution{
		Platform: platform.X8664Linux,
		Packages: []resolver.ResolvedPackage{
			buildPkg("openssl", "aaa", true),
			toolPkg("rustfmt", "bbb"),
			buildPkg("zlib", "ccc", true),
		},
	}

	d := Compute(storeRoot, m, res)

	assert.Equal(t, []string{
		filepath.Join(storeRoot, "aaa-openssl-1.0", "bin"),
		filepath.Join(storeRoot, "bbb-rustfmt-1.0", "bin"),
	}, d.BinPaths)

	// One lib entry per build dependency with libs; the tool is excluded.
	assert.Equal(t, []string{
		filepath.Join(storeRoot, "aaa-openssl-1.0", "lib"),
		filepath.Join(storeRoot, "ccc-zlib-1.0", "lib"),
	}, d.LibPaths)

	assert.Equal(t, "1", d.Vars["RUST_BACKTRACE"])
	want := strings.Join(d.LibPaths, string(os.PathListSeparator))
	assert.Equal(t, want, d.Vars[manifest.DefaultLibraryPathVar])
}

func TestComputeDeterministic(t *testing.T) {
	storeRoot := t.TempDir()
	for i, name := range []string{"alpha", "beta", "gamma"} {
		fakePrefix(t, storeRoot, fmt.Sprintf("h%d-%s-1.0", i, name), "bin", "lib")
	}

	m := &manifest.Manifest{Name: "demo", Deps: []string{"alpha", "beta", "gamma"}, LibraryPathVar: manifest.DefaultLibraryPathVar}
	res := &resolver.Resolution{
		Platform: platform.X8664Linux,
		Packages: []resolver.ResolvedPackage{
			buildPkg("alpha", "h0", true),
			buildPkg("beta", "h1", true),
			buildPkg("gamma", "h2", true),
		},
	}

	first := Compute(storeRoot, m, res)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Compute(storeRoot, m, res)); diff != "" {
			t.Fatalf("delta not deterministic on iteration %d:\n%s", i, diff)
		}
	}
}

func TestComputeRemovalDropsEntry(t *testing.T) {
	storeRoot := t.TempDir()
	fakePrefix(t, storeRoot, "aaa-openssl-1.0", "lib")
	fakePrefix(t, storeRoot, "ccc-zlib-1.0", "lib")

	m := &manifest.Manifest{Name: "demo", Deps: []string{"openssl", "zlib"}, LibraryPathVar: manifest.DefaultLibraryPathVar}
	full := &resolver.Resolution{Packages: []resolver.ResolvedPackage{
		buildPkg("openssl", "aaa", true),
		buildPkg("zlib", "ccc", true),
	}}
	trimmed := &resolver.Resolution{Packages: []resolver.ResolvedPackage{
		buildPkg("openssl", "aaa", true),
	}}

	zlibLib := filepath.Join(storeRoot, "ccc-zlib-1.0", "lib")
	assert.Contains(t, Compute(storeRoot, m, full).LibPaths, zlibLib)
	assert.NotContains(t, Compute(storeRoot, m, trimmed).LibPaths, zlibLib)
}

func TestComputePrefersLibOverLib64(t *testing.T) {
	storeRoot := t.TempDir()
	fakePrefix(t, storeRoot, "aaa-gcc-1.0", "lib", "lib64")

	m := &manifest.Manifest{Name: "demo", Deps: []string{"gcc"}, LibraryPathVar: manifest.DefaultLibraryPathVar}
	res := &resolver.Resolution{Packages: []resolver.ResolvedPackage{buildPkg("gcc", "aaa", true)}}

	d := Compute(storeRoot, m, res)
	assert.Equal(t, []string{filepath.Join(storeRoot, "aaa-gcc-1.0", "lib")}, d.LibPaths,
		"a build dependency contributes exactly one library path entry")
}

func TestComputeEmptyLibListLeavesVarUnset(t *testing.T) {
	storeRoot := t.TempDir()
	fakePrefix(t, storeRoot, "bbb-rustfmt-1.0", "bin")

	m := &manifest.Manifest{Name: "demo", Tools: []string{"rustfmt"}, LibraryPathVar: manifest.DefaultLibraryPathVar}
	res := &resolver.Resolution{Packages: []resolver.ResolvedPackage{toolPkg("rustfmt", "bbb")}}

	d := Compute(storeRoot, m, res)
	_, ok := d.Vars[manifest.DefaultLibraryPathVar]
	assert.False(t, ok, "no build deps with libs means no derived variable")
}

func TestEnviron(t *testing.T) {
	d := &Delta{
		BinPaths:       []string{"/store/aaa-x-1.0/bin"},
		LibPaths:       []string{"/store/aaa-x-1.0/lib"},
		Vars:           map[string]string{"RUST_BACKTRACE": "1", "LD_LIBRARY_PATH": "/store/aaa-x-1.0/lib"},
		LibraryPathVar: "LD_LIBRARY_PATH",
		Name:           "demo",
	}

	sep := string(os.PathListSeparator)
	env := d.Environ([]string{"PATH=/usr/bin", "HOME=/home/u", "RUST_BACKTRACE=0"})

	assert.Contains(t, env, "PATH=/store/aaa-x-1.0/bin"+sep+"/usr/bin")
	assert.Contains(t, env, "HOME=/home/u")
	assert.Contains(t, env, "RUST_BACKTRACE=1", "delta variables replace inherited values")
	assert.Contains(t, env, "LD_LIBRARY_PATH=/store/aaa-x-1.0/lib")
	assert.Contains(t, env, MarkerVar+"=demo")

	// Merged output is sorted, so repeated launches are byte-identical.
	again := d.Environ([]string{"RUST_BACKTRACE=0", "HOME=/home/u", "PATH=/usr/bin"})
	assert.Equal(t, env, again)
}

func TestExports(t *testing.T) {
	d := &Delta{
		BinPaths: []string{"/store/aaa-x-1.0/bin"},
		Vars:     map[string]string{"RUST_BACKTRACE": "1", "B_VAR": "it's quoted"},
		Name:     "demo",
	}

	lines := d.Exports()
	assert.Equal(t, []string{
		`export PATH='/store/aaa-x-1.0/bin':"$PATH"`,
		`export B_VAR='it'\''s quoted'`,
		`export RUST_BACKTRACE='1'`,
		`export DEVSHELL='demo'`,
	}, lines)
}

func TestFindLibrary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("library naming is POSIX-specific")
	}

	storeRoot := t.TempDir()
	libDir := filepath.Join(storeRoot, "aaa-openssl-1.0", "lib")
	require.NoError(t, os.MkdirAll(libDir, 0755))

	ext := SharedLibraryExtensions()[0]
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "libssl"+ext+".3"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "libcrypto"+ext), nil, 0644))

	d := &Delta{LibPaths: []string{libDir}}

	ssl := d.FindLibrary("ssl")
	require.NotNil(t, ssl, "versioned soname must be found")
	assert.Equal(t, filepath.Join(libDir, "libssl"+ext+".3"), ssl.Path)
	assert.False(t, ssl.IsStatic)

	require.NotNil(t, d.FindLibrary("crypto"))
	assert.Nil(t, d.FindLibrary("curl"))

	all := d.FindAllLibraries()
	assert.Len(t, all, 2)

	assert.Equal(t, []string{"curl"}, d.MissingLibraries([]string{"ssl", "crypto", "curl"}))
}
