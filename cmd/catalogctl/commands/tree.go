package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/tui"
)

var (
	treePlain      bool
	treeActiveOnly bool
	treeReveal     string
	treeExclude    string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Browse the category hierarchy",
	Long: `Open an interactive tree browser over the category hierarchy.

Use --plain (or --json) to print the tree instead, for scripts and pipes.

Examples:
  # Browse interactively, opened down to a category
  catalogctl tree --reveal android-phones

  # Print the storefront tree with branch glyphs
  catalogctl tree --plain --active-only

  # Print the parent choices for moving a category
  catalogctl tree --plain --exclude phones`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog()
		if err != nil {
			return err
		}
		defer c.Close()

		tree, err := c.categories.Tree(cmd.Context(), treeActiveOnly)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case jsonOutput:
			return writeJSON(out, tree.Roots)
		case treePlain:
			return printTree(out, tree, resolveID(tree, treeExclude))
		default:
			arena := category.NewArena(tree)
			expanded := arena.ExpandTo(nil, resolveID(tree, treeReveal))
			return tui.Run("Categories", arena, expanded)
		}
	},
}

// resolveID accepts either a category ID or a slug.
func resolveID(t *category.Tree, ref string) string {
	if ref == "" {
		return ""
	}
	if _, ok := t.Get(ref); ok {
		return ref
	}
	for id, c := range t.Map {
		if c.Slug == ref {
			return id
		}
	}
	return ref
}

func printTree(w io.Writer, t *category.Tree, excludeID string) error {
	entries := category.FlattenForPicker(t.Roots, excludeID)
	if len(entries) == 0 {
		info(w, "No categories")
		return nil
	}
	for _, e := range entries {
		line := e.DisplayName
		if e.ProductCount > 0 {
			line += " " + muted(fmt.Sprintf("(%d)", e.ProductCount))
		}
		if !e.IsActive {
			line += " " + muted("[inactive]")
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().BoolVar(&treePlain, "plain", false, "Print the tree instead of opening the browser")
	treeCmd.Flags().BoolVar(&treeActiveOnly, "active-only", false, "Hide inactive categories and their subtrees")
	treeCmd.Flags().StringVar(&treeReveal, "reveal", "", "Open the browser expanded down to this category (ID or slug)")
	treeCmd.Flags().StringVar(&treeExclude, "exclude", "", "Omit this category and its subtree from --plain output")
}
