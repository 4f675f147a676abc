package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freshstart/outreach/internal/app"
	"github.com/freshstart/outreach/internal/generator"
)

var probeEmail bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the AI endpoint (and optionally the mail server) is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()
			err := a.Probe(ctx)
			switch {
			case errors.Is(err, generator.ErrTimeout):
				fmt.Fprintf(out, "AI online (very slow): %s %s\n", cfg.AI.Provider, cfg.AI.Model)
			case err != nil:
				fmt.Fprintf(out, "AI offline (%s): emails will use templates\n", cfg.AI.Provider)
				return err
			default:
				fmt.Fprintf(out, "AI online: %s %s\n", cfg.AI.Provider, cfg.AI.Model)
			}

			if !probeEmail {
				return nil
			}
			verified, err := a.VerifyEmail(ctx)
			switch {
			case err != nil:
				fmt.Fprintf(out, "Email check failed (%s)\n", cfg.Email.Transport)
				return err
			case verified:
				fmt.Fprintf(out, "Email ready: %s via %s\n", cfg.Email.FromEmail, cfg.Email.Transport)
			default:
				fmt.Fprintf(out, "Email transport %s has no connection check\n", cfg.Email.Transport)
			}
			return nil
		})
	},
}

func init() {
	probeCmd.Flags().BoolVar(&probeEmail, "email", false, "also connect and log in to the mail server without sending")
}
