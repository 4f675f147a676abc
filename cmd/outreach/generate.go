package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freshstart/outreach/internal/app"
	"github.com/freshstart/outreach/internal/batch"
	"github.com/freshstart/outreach/pkg/pipeline/schema"
)

var (
	genInput   string
	genOutput  string
	genFormat  string
	genNoProbe bool
	genQuiet   bool
	genWorkers int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one email per prospect",
	Long: `Reads prospects from a CSV (company name and email required; industry,
contact name, location, company size and notes optional) and writes the
generated emails to --output as CSV, JSON or SQLite.

Example:
  outreach generate --input prospects.csv --output emails.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genInput == "" || genOutput == "" {
			return errors.New("generate requires --input and --output")
		}
		if cmd.Flags().Changed("workers") {
			cfg.Generation.Concurrency = genWorkers
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var format schema.Format
		if genFormat != "" {
			format = schema.NormalizeFormat(genFormat)
		}

		var run *batch.Run
		err := runWithApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			var err error
			run, err = a.Generate(ctx, app.GenerateOptions{
				InputPath:  genInput,
				OutputPath: genOutput,
				Format:     format,
				SkipProbe:  genNoProbe,
				Progress: func(p batch.Progress) {
					if genQuiet {
						return
					}
					fmt.Fprintf(out, "[%d/%d] %s: %s (%s, %s)\n",
						p.Completed, p.Total, p.Prospect.CompanyName, p.Result.Subject,
						p.Result.Method, p.Result.Elapsed.Round(time.Millisecond))
				},
			})
			if errors.Is(err, batch.ErrCancelled) {
				return nil
			}
			return err
		})
		if run != nil {
			fmt.Fprintln(out, app.Summary(run))
			if len(run.Items) > 0 {
				fmt.Fprintf(out, "Results written to %s\n", genOutput)
			}
		}
		return err
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genInput, "input", "i", "", "Prospects CSV")
	f.StringVarP(&genOutput, "output", "o", "", "Output file (.csv, .json or .sqlite)")
	f.StringVar(&genFormat, "format", "", "Output format override (csv, json, sqlite)")
	f.BoolVar(&genNoProbe, "no-probe", false, "Skip the AI reachability check")
	f.BoolVarP(&genQuiet, "quiet", "q", false, "Only print the summary")
	f.IntVarP(&genWorkers, "workers", "w", 1, "Concurrent generations (overrides generation.concurrency)")
}
