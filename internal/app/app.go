// Package app wires configuration, the hybrid generation pipeline, export and
// delivery into the operations exposed by the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/freshstart/outreach/internal/batch"
	"github.com/freshstart/outreach/internal/config"
	"github.com/freshstart/outreach/internal/export"
	"github.com/freshstart/outreach/internal/generator"
	"github.com/freshstart/outreach/internal/generator/gemini"
	"github.com/freshstart/outreach/internal/generator/ollama"
	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/mailer"
	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/internal/templates"
	"github.com/freshstart/outreach/pkg/pipeline/schema"
)

// ErrEmailNotConfigured means sending was requested with missing or
// placeholder credentials.
var ErrEmailNotConfigured = errors.New("email credentials not configured (still using placeholder values)")

// App holds the long-lived components for one CLI invocation.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Recorder

	engine   *templates.Engine
	pipeline *hybrid.Pipeline
	batch    *batch.Orchestrator
	tracker  *results.Tracker

	// newSender is replaced in tests.
	newSender func(ctx context.Context) (mailer.Sender, error)
}

// New builds the generator backend, template engine and pipeline described
// by cfg. rec may be nil.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, rec *metrics.Recorder) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := loadCatalog(cfg.Generation.TemplatesPath)
	if err != nil {
		return nil, err
	}
	engine := templates.NewEngine(templates.Company{
		Name:        cfg.Company.Name,
		Phone:       cfg.Company.Phone,
		Website:     cfg.Company.Website,
		ServiceArea: cfg.Company.ServiceArea,
		Years:       cfg.Company.Years,
	}, catalog)

	gen, err := NewGenerator(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	if gen != nil {
		gen = newTracedGenerator(gen, logger)
	}

	pipe := hybrid.New(gen, engine, hybrid.Options{
		FastTimeout: cfg.AI.FastTimeout,
		SlowTimeout: cfg.AI.SlowTimeout,
		Logger:      logger,
		Metrics:     rec,
		OnTransition: func(p prospect.Prospect, s hybrid.State) {
			logger.Debug("pipeline state", zap.String("company", p.CompanyName), zap.Stringer("state", s))
		},
	})

	tracker := results.NewTracker()
	a := &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  rec,
		engine:   engine,
		pipeline: pipe,
		tracker:  tracker,
		batch: batch.New(pipe, batch.Options{
			Concurrency:  cfg.Generation.Concurrency,
			RateLimitRPS: cfg.Generation.RateLimitRPS,
			Logger:       logger,
			Metrics:      rec,
			Tracker:      tracker,
		}),
	}
	a.newSender = a.buildSender
	return a, nil
}

// NewGenerator returns the configured AI backend, or nil for provider "none".
func NewGenerator(ctx context.Context, cfg config.AIConfig) (generator.Generator, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(ollama.Options{
			BaseURL:     cfg.URL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}), nil
	case "gemini":
		g, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return g, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func loadCatalog(path string) (templates.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return templates.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template catalog: %w", err)
	}
	defer f.Close()
	return templates.LoadCatalog(f)
}

// Tracker exposes the session's results.
func (a *App) Tracker() *results.Tracker { return a.tracker }

// Pipeline exposes the hybrid pipeline, mainly for probing.
func (a *App) Pipeline() *hybrid.Pipeline { return a.pipeline }

// Cancel stops a running Generate at the next prospect boundary.
func (a *App) Cancel() bool { return a.batch.Cancel() }

// Probe checks the AI endpoint and marks the pipeline available or not.
func (a *App) Probe(ctx context.Context) error {
	return a.pipeline.Probe(ctx)
}

type GenerateOptions struct {
	InputPath  string
	OutputPath string
	// Format overrides the output format inferred from OutputPath.
	Format schema.Format
	// SkipProbe leaves the AI tiers enabled without checking reachability.
	SkipProbe bool
	Progress  batch.ProgressFunc
}

// Generate loads prospects, generates one email each and writes every
// generated record to OutputPath. A cancelled batch still writes its
// partial results and returns batch.ErrCancelled.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) (*batch.Run, error) {
	if opts.InputPath == "" {
		return nil, errors.New("input path is required")
	}
	prospects, err := prospect.CSVSource{
		Path:    opts.InputPath,
		Options: prospect.LoadOptions{InferIndustry: a.cfg.Generation.InferIndustry},
	}.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("prospects loaded", zap.String("path", opts.InputPath), zap.Int("count", len(prospects)))

	if !opts.SkipProbe && a.pipeline.Available() {
		_ = a.Probe(ctx)
	}

	run, runErr := a.batch.Run(ctx, prospects, opts.Progress)
	if run == nil || len(run.Items) == 0 || opts.OutputPath == "" {
		return run, runErr
	}

	recs := a.runRecords(run.ID)
	out := export.FileOutput{Path: opts.OutputPath, Format: opts.Format}
	if err := out.Store(context.WithoutCancel(ctx), recs); err != nil {
		return run, errors.Join(runErr, fmt.Errorf("write results: %w", err))
	}
	a.logger.Info("results written", zap.String("path", opts.OutputPath), zap.Int("records", len(recs)))
	return run, runErr
}

func (a *App) runRecords(runID string) []results.Record {
	var out []results.Record
	for _, r := range a.tracker.Export() {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out
}

// Summary renders the end-of-batch report.
func Summary(run *batch.Run) string {
	if run == nil {
		return "no emails generated"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generated %d emails in %s", len(run.Items), run.Elapsed.Round(time.Millisecond))
	if n := len(run.Items); n > 0 {
		fmt.Fprintf(&b, "\n  AI (fast):  %d\n  AI (slow):  %d\n  Template:   %d\n  AI rate:    %.0f%%",
			run.AIFast, run.AISlow, run.Template, 100*float64(run.AI())/float64(n))
	}
	if len(run.Skipped) > 0 {
		fmt.Fprintf(&b, "\n  Skipped:    %d", len(run.Skipped))
		for _, s := range run.Skipped {
			fmt.Fprintf(&b, "\n    row %d: %s", s.Index+1, s.Reason)
		}
	}
	if run.Cancelled {
		b.WriteString("\n  (cancelled before completion)")
	}
	return b.String()
}
