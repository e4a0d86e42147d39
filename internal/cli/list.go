package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"congen/internal/workspace"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the module packages in the workspace",
	Long: `List prints the short name of every module package found under the
workspace root, one per line. With --verbose each line also carries the
package directory and whether its consumer package exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		// Listing always covers the whole workspace, even from inside a
		// module directory.
		cfg.Filter = flagMod

		mods, err := workspace.NewScanner().Scan(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, mod := range mods {
			if !flagVerbose {
				fmt.Fprintln(out, mod.Name)
				continue
			}
			state := "no consumer"
			if mod.HasConsumer {
				state = "consumer present"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", mod.Name, mod.Dir, state)
		}
		return nil
	},
}
