package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyRepair bool

// errViolations makes verify exit non-zero when problems remain.
var errViolations = errors.New("category tree has integrity violations")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the category tree for lineage violations",
	Long: `Check every category's level, ancestors and path against its parent
chain, and report orphans, parent cycles and duplicate slugs.

With --repair the stored lineage is rewritten from the parent chain and the
tree is verified again. Exits non-zero when violations remain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		violations, err := c.categories.Verify(ctx)
		if err != nil {
			return err
		}

		repaired := 0
		if verifyRepair && len(violations) > 0 {
			if repaired, err = c.categories.Repair(ctx); err != nil {
				return err
			}
			if violations, err = c.categories.Verify(ctx); err != nil {
				return err
			}
		}

		if jsonOutput {
			if err := writeJSON(out, map[string]any{"violations": violations, "repaired": repaired}); err != nil {
				return err
			}
		} else {
			if repaired > 0 {
				success(out, "Repaired %d categories", repaired)
			}
			for _, v := range violations {
				warning(out, "%s %s %s", v.Kind, v.CategoryID, muted(v.Detail))
			}
			if len(violations) == 0 {
				success(out, "Category tree is consistent")
			}
		}

		if len(violations) > 0 {
			return fmt.Errorf("%w: %d found", errViolations, len(violations))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyRepair, "repair", false, "Rewrite stored lineage from the parent chain")
}
