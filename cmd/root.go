// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "activity-stats",
	Short: "Aggregates activity levels from several upstream APIs.",
	Long: `activity-stats queries a fixed list of upstream JSON APIs concurrently,
reduces each response to the length of the array it returns, and reports
the combined result keyed by source name. A source that answers with a
non-JSON content type is reported as null; any other failure as -1.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	addGlobalFlags(rootCmd.PersistentFlags())
}

// addGlobalFlags registers the flags shared by every subcommand.
func addGlobalFlags(fs *pflag.FlagSet) {
	fs.BoolP("verbose", "v", false, "Enable verbose/debug logging")
	fs.String("config", "", "config file (default is ./activity-stats.yaml or $HOME/.config/activity-stats/activity-stats.yaml)")
	fs.StringP("targets-file", "t", "", "YAML file listing the upstream targets (default: built-in targets)")
	fs.Duration("fetch-timeout", defaultFetchTimeout, "Upper bound for a single upstream fetch")
	fs.String("user-agent", "", "User-Agent sent to upstreams")
	fs.Bool("strict", false, "Fail the whole request when any upstream fails unexpectedly")
}
