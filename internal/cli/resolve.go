// internal/cli/resolve.go
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devshell-sh/devshell"
)

var (
	resolveForce bool
	resolveCheck bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Pin the manifest's dependencies and write the lock file",
	Long: `Resolve every declared dependency to a concrete, versioned store
reference for the current platform and record the result in devshell.lock.

Examples:
  devshell resolve
  devshell resolve --force     # ignore the existing lock
  devshell resolve --check     # fail if the lock is stale, resolve nothing`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveForce, "force", false, "re-resolve even when the lock file is current")
	resolveCmd.Flags().BoolVar(&resolveCheck, "check", false, "verify the lock file and exit")
}

func runResolve(cmd *cobra.Command, args []string) error {
	sess, err := devshell.NewSession(manifestPath, cfg)
	if err != nil {
		return err
	}

	if resolveCheck {
		if err := sess.CheckLock(); err != nil {
			return err
		}
		fmt.Println("Lock file is up to date.")
		return nil
	}

	res, err := sess.Resolve(cmd.Context(), resolveForce)
	if err != nil {
		return err
	}

	fmt.Printf("Platform: %s\n\n", res.Platform)
	for _, pkg := range res.Packages {
		outputs := make([]string, 0, len(pkg.Outputs))
		for name := range pkg.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)
		fmt.Printf("  %-20s %-24s [%s] (%s)\n", pkg.Name, pkg.Version, strings.Join(outputs, ","), pkg.Kind)
	}
	fmt.Printf("\n%d dependencies pinned.\n", len(res.Packages))

	return nil
}
