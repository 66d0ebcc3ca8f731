// Command auditctl replays scripted intake conversations offline and prints
// the resulting opportunity report.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/p-blackswan/audit-intake/internal/opportunity"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
	Version = "0.0.0-dev"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "auditctl",
	Short: "Offline tools for the audit intake engine",
	Long: `auditctl runs the intake conversation engine without a server.

Examples:
  auditctl replay testdata/saas.yaml                  # print turns and a markdown report
  auditctl replay script.yaml --format xlsx -o r.xlsx  # write a workbook
  auditctl catalog                                     # list opportunity templates`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newReplayCmd() *cobra.Command {
	var (
		opts    replayOptions
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "replay <transcript.yaml>",
		Short: "Replay a transcript and print the generated report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := LoadTranscript(args[0])
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			} else if opts.Format == "xlsx" {
				return fmt.Errorf("xlsx output needs --out")
			}

			r, err := replay(cmd.Context(), t, opts, cmd.ErrOrStderr(), out, newLogger())
			if err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "report %s written to %s\n", r.ID, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "markdown", "Report format: markdown, html, json or xlsx")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not print conversation turns")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the opportunity templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opportunity.DefaultCatalog()
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), c)
		},
	}
}

func printCatalog(w io.Writer, c opportunity.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tCATEGORY\tIMPACT\tEFFORT\tHOURS/WK\tCOST")
	for _, t := range c.Templates {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.0f\t$%.0f\n",
			t.Slug, t.Category, t.Impact, t.Effort, t.HoursSavedWeekly, t.Cost)
	}
	return tw.Flush()
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.AddCommand(newReplayCmd(), newCatalogCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "auditctl:", err)
		os.Exit(1)
	}
}
