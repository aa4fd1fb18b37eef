package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradepost/catalog-server/internal/taxonomy"
)

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Apply a YAML taxonomy file",
	Long: `Create every category in a YAML taxonomy file that does not exist yet.
Existing categories are matched by slug and kept; new children are attached
below them.

With --watch the file is re-applied whenever it changes, until interrupted.

Examples:
  catalogctl import taxonomy.yaml
  catalogctl import taxonomy.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		seeds, err := taxonomy.Load(path)
		if err != nil {
			return err
		}

		c, err := openCatalog()
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		res, err := c.importer.Apply(cmd.Context(), seeds)
		if err != nil {
			return err
		}
		if jsonOutput && !importWatch {
			return writeJSON(out, res)
		}
		success(out, "Applied %s (%d nodes): %d created, %d already present",
			path, taxonomy.Count(seeds), res.Created, res.Skipped)

		if !importWatch {
			return nil
		}

		w, err := taxonomy.NewWatcher(path, c.importer, c.log.Component("taxonomy"), taxonomy.WatcherOptions{
			OnApply: func(res taxonomy.Result, err error) {
				if err != nil {
					failure(out, "Re-import failed: %v", err)
					return
				}
				success(out, "Re-applied %s: %d created, %d already present", path, res.Created, res.Skipped)
			},
		})
		if err != nil {
			return fmt.Errorf("watch taxonomy: %w", err)
		}
		defer w.Close()

		ctx, stop := signalContext()
		defer stop()

		info(out, "Watching %s for changes (Ctrl+C to stop)", path)
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "Re-apply the file whenever it changes")
}
