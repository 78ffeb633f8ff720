// internal/cli/sync.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devshell-sh/devshell"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the dependency registry",
	Long:  `Fetch the latest deps/ registry content into the local cache.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Updating dependency registry...")
		if err := devshell.SyncIndex(cfg); err != nil {
			return err
		}
		fmt.Println("Registry updated successfully.")
		return nil
	},
}
