// Package commands implements the scribed CLI, grounded on
// marmos91-dittofs/cmd/dittofs/commands's cobra root-plus-subcommands
// convention.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/quillhub/scribe/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scribed",
	Short: "scribed - a realtime collaborative document server",
	Long: `scribed serves operational-transform document and caret layers:
per-document update/snapshot/deltaAfter RPCs over Post and websocket
connections, token-based authorization, and a companion monitor HTTP
surface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: $XDG_CONFIG_HOME/scribe/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(inspectCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("scribed %s (commit %s)\n", app.Version, app.Commit)
		return nil
	},
}
