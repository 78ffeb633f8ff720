// internal/cli/gc.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devshell-sh/devshell"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove unreferenced store objects",
	Long: `Delete store objects that are not referenced by the current
manifest's resolution.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := devshell.NewSession(manifestPath, cfg)
		if err != nil {
			return err
		}

		removed, err := sess.GC(cmd.Context())
		if err != nil {
			return err
		}

		if len(removed) == 0 {
			fmt.Println("Nothing to remove.")
			return nil
		}

		for _, name := range removed {
			fmt.Printf("  removed %s\n", name)
		}
		fmt.Printf("%d store objects removed.\n", len(removed))
		return nil
	},
}
