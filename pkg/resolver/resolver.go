// pkg/resolver/resolver.go
package resolver

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/devshell-sh/devshell/pkg/cache"
	"github.com/devshell-sh/devshell/pkg/manifest"
	"github.com/devshell-sh/devshell/pkg/platform"
	"github.com/devshell-sh/devshell/pkg/registry"
)

// DefaultEndpoint is the release endpoint queried for latest builds
const DefaultEndpoint = "https://hydra.nixos.org"

// resolveParallelism bounds concurrent release endpoint queries
const resolveParallelism = 4

// buildInfo is the JSON shape of a release endpoint response
type buildInfo struct {
	ID           int `json:"id"`
	BuildStatus  int `json:"buildstatus"` // 0 = succeeded
	Buildoutputs map[string]struct {
		Path string `json:"path"`
	} `json:"buildoutputs"`
}

// ResolvedPackage is one dependency pinned to concrete store objects
type ResolvedPackage struct {
	Name    string            `yaml:"name"`
	Attr    string            `yaml:"attr"`
	Version string            `yaml:"version"` // name-version, e.g. "openssl-3.0.13"
	Kind    manifest.Kind     `yaml:"kind"`
	Outputs map[string]string `yaml:"outputs"` // output name -> store hash
	HasLibs bool              `yaml:"has_libs"`
}

// StoreName returns the store directory name for the package, keyed by the
// primary output hash so distinct builds never collide
func (p *ResolvedPackage) StoreName() string {
	return p.PrimaryHash() + "-" + p.Version
}

// PrimaryHash returns the hash of the "out" output, or the lexically first
// output when there is none
func (p *ResolvedPackage) PrimaryHash() string {
	if h, ok := p.Outputs["out"]; ok {
		return h
	}
	names := make([]string, 0, len(p.Outputs))
	for name := range p.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return p.Outputs[names[0]]
}

// Resolution pins every manifest dependency for one platform
type Resolution struct {
	Platform platform.Platform `yaml:"platform"`
	Packages []ResolvedPackage `yaml:"packages"` // sorted by name
}

// Lookup finds a resolved package by dependency name
func (r *Resolution) Lookup(name string) *ResolvedPackage {
	for i := range r.Packages {
		if r.Packages[i].Name == name {
			return &r.Packages[i]
		}
	}
	return nil
}

// Resolver maps declared dependency names to concrete, versioned,
// platform-specific store references
type Resolver struct {
	registry *registry.Registry
	client   *cache.Client
	endpoint string
	logger   *log.Logger
}

// New creates a Resolver. endpoint defaults to the public release
// endpoint; a nil logger discards all output.
func New(reg *registry.Registry, client *cache.Client, endpoint string, logger *log.Logger) *Resolver {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{
		registry: reg,
		client:   client,
		endpoint: endpoint,
		logger:   logger,
	}
}

// Resolve pins every package of the manifest. Queries run in parallel;
// the result is assembled in sorted name order so repeated resolution of
// the same manifest yields identical output regardless of completion
// order.
func (r *Resolver) Resolve(ctx context.Context, m *manifest.Manifest, plat platform.Platform) (*Resolution, error) {
	pkgs := m.Packages()
	if len(pkgs) == 0 {
		return &Resolution{Platform: plat}, nil
	}

	var mu sync.Mutex
	resolved := make([]ResolvedPackage, 0, len(pkgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveParallelism)

	for _, pkg := range pkgs {
		pkg := pkg
		g.Go(func() error {
			rp, err := r.resolveOne(gctx, pkg, plat)
			if err != nil {
				return fmt.Errorf("resolving '%s': %w", pkg.Name, err)
			}
			mu.Lock()
			resolved = append(resolved, *rp)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Name < resolved[j].Name
	})

	return &Resolution{
		Platform: plat,
		Packages: resolved,
	}, nil
}

// ResolveName pins a single dependency outside a manifest context.
// Used by informational commands.
func (r *Resolver) ResolveName(ctx context.Context, name string, plat platform.Platform) (*ResolvedPackage, error) {
	return r.resolveOne(ctx, manifest.Package{Name: name, Kind: manifest.KindBuild}, plat)
}

// resolveOne pins a single dependency: registry lookup for the cache
// attribute, then a release endpoint query for the latest build's outputs
func (r *Resolver) resolveOne(ctx context.Context, pkg manifest.Package, plat platform.Platform) (*ResolvedPackage, error) {
	entry, err := r.registry.Load(pkg.Name)
	if err != nil {
		return nil, err
	}

	attr := entry.AttrFor(plat.String())
	outputs, version, err := r.queryLatest(ctx, attr, plat)
	if err != nil {
		return nil, err
	}

	if len(entry.Outputs) > 0 {
		outputs = filterOutputs(outputs, entry.Outputs)
		if len(outputs) == 0 {
			return nil, fmt.Errorf("no requested outputs published for '%s'", attr)
		}
	}

	return &ResolvedPackage{
		Name:    pkg.Name,
		Attr:    attr,
		Version: version,
		Kind:    pkg.Kind,
		Outputs: outputs,
		HasLibs: entry.HasLibs(),
	}, nil
}

// queryLatest asks the release endpoint for the newest build of attr on
// the platform. Returns (map[outputName]storeHash, nameWithVersion).
func (r *Resolver) queryLatest(ctx context.Context, attr string, plat platform.Platform) (map[string]string, string, error) {
	url := fmt.Sprintf("%s/job/nixos/trunk-combined/nixpkgs.%s.%s/latest", r.endpoint, attr, plat)
	r.logger.Printf("Querying release endpoint: %s", url)

	var info buildInfo
	if err := r.client.GetJSON(ctx, url, &info); err != nil {
		return nil, "", fmt.Errorf("release endpoint query for '%s' on %s: %w", attr, plat, err)
	}

	if info.BuildStatus != 0 {
		r.logger.Printf("Warning: latest build for '%s' has status %d", attr, info.BuildStatus)
	}

	if len(info.Buildoutputs) == 0 {
		return nil, "", fmt.Errorf("no outputs published for '%s' on %s", attr, plat)
	}

	outputs := make(map[string]string)
	var nameVersion string

	for outputName, outputData := range info.Buildoutputs {
		// Path format: /nix/store/<hash>-<name>-<version>[-<output>]
		trimmed := strings.TrimPrefix(outputData.Path, "/nix/store/")
		hash, rest, ok := strings.Cut(trimmed, "-")
		if !ok {
			r.logger.Printf("Skipping invalid store path: %s", outputData.Path)
			continue
		}

		outputs[outputName] = hash

		// Prefer the "out" path for the base name-version; other outputs
		// carry an "-<output>" suffix that has to come off.
		if nameVersion == "" || outputName == "out" {
			if outputName != "out" {
				rest = strings.TrimSuffix(rest, "-"+outputName)
			}
			nameVersion = rest
		}
	}

	if len(outputs) == 0 {
		return nil, "", fmt.Errorf("no usable store paths for '%s'", attr)
	}

	r.logger.Printf("Resolved '%s' -> %s (%d outputs)", attr, nameVersion, len(outputs))
	return outputs, nameVersion, nil
}

func filterOutputs(outputs map[string]string, wanted []string) map[string]string {
	filtered := make(map[string]string, len(wanted))
	for _, name := range wanted {
		if hash, ok := outputs[name]; ok {
			filtered[name] = hash
		}
	}
	return filtered
}
