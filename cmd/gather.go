package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/activity-stats/internal/domain"
)

// errUpstreamFailed is returned by gather in strict mode when any target is -1.
var errUpstreamFailed = errors.New("one or more upstreams failed")

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Gathers activity once and prints it",
	Long:  `Queries every configured target concurrently once and prints the combined report, as JSON (default) or as a table.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		format, _ := cmd.Flags().GetString("format")

		// stdout carries the report, so logs only appear with --verbose (on stderr).
		logger, err := newLogger(cfg.Verbose, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync() //nolint:errcheck

		if err := runGather(context.Background(), cfg, format, os.Stdout, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runGather(ctx context.Context, cfg appConfig, format string, out io.Writer, logger *zap.Logger) error {
	if format != "json" && format != "table" {
		return fmt.Errorf("unknown format %q (want json or table)", format)
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	aggregator, err := newAggregator(cfg, logger)
	if err != nil {
		return err
	}

	report := aggregator.GatherActivity(ctx, registry)

	if format == "table" {
		if err := writeTable(out, registry.Names(), report); err != nil {
			return err
		}
	} else {
		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report to JSON: %w", err)
		}
		fmt.Fprintln(out, string(jsonData))
	}

	if cfg.Strict {
		if failed := report.Failed(); len(failed) > 0 {
			return fmt.Errorf("%w: %v", errUpstreamFailed, failed)
		}
	}
	return nil
}

// writeTable prints one row per target in configuration order, coloring the
// status: green for a count, yellow for null, red for -1.
func writeTable(out io.Writer, names []string, report domain.ActivityReport) error {
	ordered := append([]string(nil), names...)
	if len(ordered) == 0 {
		for name := range report {
			ordered = append(ordered, name)
		}
		sort.Strings(ordered)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tACTIVITY\tSTATUS")
	for _, name := range ordered {
		o := report[name]
		var status string
		switch o.Kind {
		case domain.Count:
			status = color.GreenString("ok")
		case domain.NotJSON:
			status = color.YellowString("not json")
		default:
			status = color.RedString("failed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, o, status)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(gatherCmd)
	gatherCmd.Flags().StringP("format", "f", "json", "Output format: json or table")
}
