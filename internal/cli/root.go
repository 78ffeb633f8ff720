// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devshell-sh/devshell/pkg/config"
	"github.com/devshell-sh/devshell/pkg/manifest"
)

var (
	cfgFile      string
	manifestPath string
	platformFlag string
	debug        bool
	cfg          *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "devshell",
	Short: "Declarative development environments",
	Long: `devshell - Declarative development environments

Reads a devshell.yaml manifest describing a reproducible development
environment, materializes the declared dependencies from a binary cache,
and drops you into a shell with everything on PATH.`,
	Version: "0.1.0",
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/devshell/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", manifest.DefaultFileName, "manifest file")
	rootCmd.PersistentFlags().StringVar(&platformFlag, "platform", "", "target platform double (e.g. x86_64-linux)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		cfg = config.Default()
	}

	// Override config with flags
	if platformFlag != "" {
		cfg.Platform = platformFlag
	}
	if debug {
		cfg.Debug = true
	}
}
