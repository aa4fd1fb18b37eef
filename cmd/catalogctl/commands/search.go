package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchAdmin bool
)

var searchCmd = &cobra.Command{
	Use:   "search TERM...",
	Short: "Search categories",
	Long: `Run the storefront search, which ranks matching active categories by relevance.
With --admin the substring search over every category is used instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog()
		if err != nil {
			return err
		}
		defer c.Close()

		term := strings.Join(args, " ")
		search := c.categories.StorefrontSearch
		if searchAdmin {
			search = c.categories.Search
		}
		results, err := search(cmd.Context(), term, searchLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, results)
		}
		if len(results) == 0 {
			info(out, "No categories match %q", term)
			return nil
		}
		section(out, fmt.Sprintf("%d result(s) for %q", len(results), term))
		for _, r := range results {
			fmt.Fprintf(out, "%s %s\n", r.Name, muted(r.Path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchAdmin, "admin", false, "Include inactive categories (substring match)")
}
