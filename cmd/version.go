package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const versionTemplate = `asklens {{.Version}}

Supported data sources:
  • Uploaded files (CSV/Excel ingested to row sets)
  • PostgreSQL 12+
  • MySQL 8.0+
`

// Version is set at build time via ldflags
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print asklens version and supported data sources",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("asklens %s (commit: %s, built: %s)\n\n", Version, CommitSHA, BuildDate)
		cmd.Println("Supported data sources:")
		cmd.Println("  • Uploaded files (CSV/Excel ingested to row sets)")
		cmd.Println("  • PostgreSQL 12+")
		cmd.Println("  • MySQL 8.0+")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Enable the standard --version flag, matching the `version` subcommand output.
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, CommitSHA, BuildDate)
	rootCmd.SetVersionTemplate(versionTemplate)
}
