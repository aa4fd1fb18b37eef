package commands

import (
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in starter taxonomy",
	Long: `Create the built-in starter categories. Categories whose slug already
exists are left untouched, so seeding is safe to repeat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog()
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.importer.Seed(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, res)
		}
		success(out, "Seeded taxonomy: %d created, %d already present", res.Created, res.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
