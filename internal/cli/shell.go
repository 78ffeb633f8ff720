// internal/cli/shell.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/devshell-sh/devshell"
	"github.com/devshell-sh/devshell/pkg/shell"
)

var (
	shellPrintEnv bool
	shellForce    bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Enter the development environment",
	Long: `Resolve and materialize the manifest's dependencies, then launch an
interactive shell with the environment applied.

Examples:
  devshell shell
  devshell shell --print-env       # print export lines instead
  devshell shell --force           # ignore the lock file and re-fetch`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().BoolVar(&shellPrintEnv, "print-env", false, "print export lines instead of spawning a shell")
	shellCmd.Flags().BoolVar(&shellForce, "force", false, "re-resolve and re-fetch even when lock and store are current")
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := devshell.NewSession(manifestPath, cfg)
	if err != nil {
		return err
	}

	res, err := sess.Resolve(ctx, shellForce)
	if err != nil {
		return err
	}

	if err := sess.Materialize(ctx, res, shellForce); err != nil {
		return err
	}

	delta := sess.Delta(res)
	launcher := shell.New(delta, nil)
	return launcher.LaunchWithOptions(ctx, &shell.Options{PrintOnly: shellPrintEnv})
}
