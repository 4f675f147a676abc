package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/freshstart/outreach/internal/export"
	"github.com/freshstart/outreach/internal/mailer"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/pkg/pipeline/redact"
	"github.com/freshstart/outreach/pkg/pipeline/schema"
)

type SendOptions struct {
	// InputPath is an export written by Generate, possibly hand-edited.
	InputPath string
	// OutputPath receives the records with delivery status. Defaults to
	// InputPath.
	OutputPath string
	Format     schema.Format
	// DryRun logs messages instead of delivering them.
	DryRun bool
}

// Send delivers every unsent record from InputPath and writes the updated
// records back. Individual delivery failures are recorded, not returned.
func (a *App) Send(ctx context.Context, opts SendOptions) (results.SendCounts, error) {
	var counts results.SendCounts
	if opts.InputPath == "" {
		return counts, errors.New("input path is required")
	}
	if opts.OutputPath == "" {
		opts.OutputPath = opts.InputPath
	}
	if !opts.DryRun && !a.cfg.EmailConfigured() {
		return counts, ErrEmailNotConfigured
	}

	in := export.FileOutput{Path: opts.InputPath, Format: opts.Format}
	recs, err := in.Load(ctx)
	if err != nil {
		return counts, fmt.Errorf("load results: %w", err)
	}
	for _, r := range recs {
		a.tracker.Add(r)
	}

	var sender mailer.Sender
	if opts.DryRun {
		sender = mailer.NewLogSender(a.logger)
	} else if sender, err = a.newSender(ctx); err != nil {
		return counts, err
	}

	d := mailer.NewDispatcher(sender, a.tracker, mailer.DispatchOptions{
		FromAddress:  a.cfg.Email.FromEmail,
		FromName:     a.cfg.Email.FromName,
		Signature:    a.engine.Signature(),
		RateLimitRPS: a.cfg.Email.RateLimitRPS,
		MaxRetries:   a.cfg.Email.MaxRetries,
		SendTimeout:  a.cfg.Email.SendTimeout,
		Logger:       a.logger,
		Metrics:      a.metrics,
	})
	pending := a.tracker.Unsent()
	a.logger.Info("sending", zap.String("transport", sender.Name()), zap.Int("pending", len(pending)), zap.Int("total", len(recs)))

	counts, sendErr := d.SendAll(ctx, pending)

	out := export.FileOutput{Path: opts.OutputPath, Format: opts.Format}
	if err := a.persistSends(context.WithoutCancel(ctx), out); err != nil {
		return counts, errors.Join(sendErr, err)
	}
	return counts, sendErr
}

func (a *App) persistSends(ctx context.Context, out export.FileOutput) error {
	if err := out.Store(ctx, a.tracker.Export()); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	format := out.Format
	if format == "" {
		format = schema.NormalizeFormat(filepath.Ext(out.Path))
	}
	if format != schema.FormatSQLite {
		return nil
	}
	store, err := export.OpenSQLite(ctx, out.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveSends(ctx, a.tracker.Sends())
}

// VerifyEmail checks the configured transport's connection and credentials
// without sending. It reports false when the transport has no such check.
func (a *App) VerifyEmail(ctx context.Context) (bool, error) {
	if !a.cfg.EmailConfigured() {
		return false, ErrEmailNotConfigured
	}
	sender, err := a.newSender(ctx)
	if err != nil {
		return false, err
	}
	v, ok := sender.(mailer.Verifier)
	if !ok {
		a.logger.Info("email transport has no connection check", zap.String("transport", sender.Name()))
		return false, nil
	}
	if err := v.Verify(ctx); err != nil {
		a.logger.Warn("email connection check failed",
			zap.String("transport", sender.Name()),
			zap.String("error", redact.Secrets(err.Error())),
		)
		return false, err
	}
	a.logger.Info("email connection verified", zap.String("transport", sender.Name()))
	return true, nil
}

func (a *App) buildSender(ctx context.Context) (mailer.Sender, error) {
	e := a.cfg.Email
	switch e.Transport {
	case "smtp":
		s, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     e.SMTPServer,
			Port:     e.SMTPPort,
			Username: e.FromEmail,
			Password: e.FromPassword,
			TLSMode:  e.TLSMode,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "ses":
		s, err := mailer.NewSESSender(ctx, e.SESRegion, e.SESConfigSet)
		if err != nil {
			return nil, fmt.Errorf("ses: %w", err)
		}
		return s, nil
	case "log":
		return mailer.NewLogSender(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", e.Transport)
	}
}
