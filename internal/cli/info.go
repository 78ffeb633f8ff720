// internal/cli/info.go
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devshell-sh/devshell/pkg/cache"
	"github.com/devshell-sh/devshell/pkg/platform"
	"github.com/devshell-sh/devshell/pkg/registry"
	"github.com/devshell-sh/devshell/pkg/resolver"
)

var infoCmd = &cobra.Command{
	Use:   "info [dependency]",
	Short: "Show information about a dependency",
	Long: `Display registry metadata for a dependency and the latest build
published for the current platform. Works without a manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	name := args[0]

	reg := registry.New(cfg.CachePath)
	entry, err := reg.Load(name)
	if err != nil {
		return err
	}

	plat := platform.Platform(cfg.Platform)
	if plat == "" {
		plat, err = platform.Detect()
		if err != nil {
			return fmt.Errorf("detecting platform: %w", err)
		}
	}

	fmt.Printf("Dependency: %s\n", entry.Name)
	fmt.Printf("Attribute:  %s\n", entry.AttrFor(plat.String()))
	fmt.Printf("Platform:   %s\n", plat)
	if len(entry.Libs) > 0 {
		fmt.Printf("Libraries:  %s\n", strings.Join(entry.Libs, ", "))
	}
	if len(entry.Outputs) > 0 {
		fmt.Printf("Outputs:    %s\n", strings.Join(entry.Outputs, ", "))
	}

	client := cache.NewClient(cfg.CacheURL, cfg.Timeout)
	r := resolver.New(reg, client, cfg.Endpoint, nil)

	pkg, err := r.ResolveName(cmd.Context(), name, plat)
	if err != nil {
		return fmt.Errorf("querying latest build: %w", err)
	}

	fmt.Printf("Latest:     %s\n", pkg.Version)
	outputs := make([]string, 0, len(pkg.Outputs))
	for output := range pkg.Outputs {
		outputs = append(outputs, output)
	}
	sort.Strings(outputs)
	for _, output := range outputs {
		fmt.Printf("  %-8s %s\n", output, pkg.Outputs[output])
	}

	return nil
}
