package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freshstart/outreach/internal/app"
	"github.com/freshstart/outreach/internal/results"
)

var (
	sendInput  string
	sendOutput string
	sendDryRun bool
	sendYes    bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send generated emails that have not been sent yet",
	Long: `Sends every unsent email in a file written by "outreach generate". The
file may be edited by hand first; edited subjects and bodies are sent as-is.
Delivery status is written back to --output (default: the input file).

Sends are paced at email.rate_limit_rps (one per second by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendInput == "" {
			return errors.New("send requires --input")
		}
		if !sendDryRun && !cfg.EmailConfigured() {
			return app.ErrEmailNotConfigured
		}
		if !sendDryRun && !sendYes {
			return errors.New("refusing to send without --yes (use --dry-run to preview)")
		}

		var counts results.SendCounts
		err := runWithApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			var err error
			counts, err = a.Send(ctx, app.SendOptions{
				InputPath:  sendInput,
				OutputPath: sendOutput,
				DryRun:     sendDryRun,
			})
			return err
		})
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d of %d (%d failed)\n", counts.Succeeded, counts.Attempted, counts.Failed)
		return err
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendInput, "input", "i", "", "Generated emails (.csv, .json or .sqlite)")
	f.StringVarP(&sendOutput, "output", "o", "", "Where to write delivery status (default: input)")
	f.BoolVar(&sendDryRun, "dry-run", false, "Log messages instead of sending")
	f.BoolVarP(&sendYes, "yes", "y", false, "Confirm sending")
}
