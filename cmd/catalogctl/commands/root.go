// Package commands implements the catalogctl subcommands.
package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradepost/catalog-server/internal/config"
)

var (
	// Global flags
	configFlags config.Flags
	verbose     bool
	jsonOutput  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Inspect and maintain the marketplace category tree",
	Long: `catalogctl works directly against the category store used by the catalog
server. It shares the server's configuration: every server flag and
environment variable (STORE_DRIVER, DATABASE_URL, SEARCH_PATH, ...) applies.

Commands:
  - tree     browse the hierarchy interactively or print it
  - seed     load the built-in starter taxonomy
  - import   apply a YAML taxonomy file, optionally watching it
  - search   run a storefront search
  - verify   check lineage integrity and optionally repair it`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	fs := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	configFlags.Register(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show service logs")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}
