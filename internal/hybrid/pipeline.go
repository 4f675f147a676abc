// Package hybrid implements tiered email generation: a fast AI attempt, a
// slower retry on timeout or connection failure, and a template fallback that
// always succeeds.
package hybrid

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/freshstart/outreach/internal/generator"
	"github.com/freshstart/outreach/internal/industry"
	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/templates"
	"github.com/freshstart/outreach/pkg/pipeline/redact"
)

const (
	DefaultFastTimeout = 15 * time.Second
	DefaultSlowTimeout = 60 * time.Second
)

type Options struct {
	FastTimeout time.Duration
	SlowTimeout time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Recorder

	// OnTransition observes every state change of every execution.
	OnTransition func(p prospect.Prospect, s State)

	// Now overrides the clock used for timestamps and elapsed time.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FastTimeout <= 0 {
		o.FastTimeout = DefaultFastTimeout
	}
	if o.SlowTimeout <= 0 {
		o.SlowTimeout = DefaultSlowTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	gen       generator.Generator
	engine    *templates.Engine
	opts      Options
	available atomic.Bool
}

// New builds a pipeline. gen may be nil, in which case every email comes from
// the template engine.
func New(gen generator.Generator, engine *templates.Engine, opts Options) *Pipeline {
	if engine == nil {
		engine = templates.NewEngine(templates.Company{}, nil)
	}
	p := &Pipeline{gen: gen, engine: engine, opts: opts.withDefaults()}
	p.available.Store(gen != nil)
	return p
}

// SetAvailable marks the AI endpoint as reachable or known unreachable. While
// unavailable the AI tiers are skipped.
func (p *Pipeline) SetAvailable(ok bool) {
	p.available.Store(ok && p.gen != nil)
}

func (p *Pipeline) Available() bool {
	return p.available.Load()
}

// Probe pings the generator when it supports it and records the outcome with
// SetAvailable. Generators without a ping are assumed reachable. A ping that
// times out counts as a slow endpoint: the pipeline stays available and the
// ErrTimeout is still returned.
func (p *Pipeline) Probe(ctx context.Context) error {
	if p.gen == nil {
		p.SetAvailable(false)
		return generator.ErrUnreachable
	}
	pinger, ok := p.gen.(generator.Pinger)
	if !ok {
		p.SetAvailable(true)
		return nil
	}
	err := pinger.Ping(ctx)
	if errors.Is(err, generator.ErrTimeout) {
		p.SetAvailable(true)
		p.opts.Logger.Warn("ai endpoint slow to answer, keeping ai tiers enabled",
			zap.String("model", p.gen.Model()),
			zap.String("error", redact.Secrets(err.Error())),
		)
		return err
	}
	p.SetAvailable(err == nil)
	if err != nil {
		p.opts.Logger.Warn("ai endpoint unreachable, using templates only",
			zap.String("model", p.gen.Model()),
			zap.String("error", redact.Secrets(err.Error())),
		)
	}
	return err
}

// GenerateEmail always returns a result with a non-empty subject and body.
func (p *Pipeline) GenerateEmail(ctx context.Context, pr prospect.Prospect) EmailResult {
	start := p.opts.Now()
	category := industry.Classify(pr.Industry)
	log := p.opts.Logger.With(zap.String("company", pr.CompanyName), zap.String("category", string(category)))
	p.transition(pr, NotStarted)

	finish := func(res EmailResult) EmailResult {
		res.Category = category
		res.GeneratedAt = p.opts.Now()
		res.Elapsed = res.GeneratedAt.Sub(start)
		p.transition(pr, Done)
		p.opts.Metrics.ObserveGeneration(string(res.Method), string(category), res.Elapsed)
		log.Info("email generated",
			zap.String("method", string(res.Method)),
			zap.Duration("elapsed", res.Elapsed),
			zap.String("fallback_reason", res.FallbackReason),
		)
		return res
	}

	if !p.Available() {
		return finish(p.fromTemplate(pr, category, "ai unavailable"))
	}

	req := generator.Request{
		Prospect: pr,
		Category: category,
		Content:  p.engine.Content(category),
		Sender:   p.engine.Company(),
	}

	p.transition(pr, FastAttempt)
	res, err := p.attempt(ctx, req, "fast", p.opts.FastTimeout, AIFast, log)
	if err == nil {
		return finish(res)
	}
	if !errors.Is(err, generator.ErrTimeout) && !errors.Is(err, generator.ErrUnreachable) {
		return finish(p.fromTemplate(pr, category, outcome(err)))
	}

	p.transition(pr, SlowAttempt)
	res, err = p.attempt(ctx, req, "slow", p.opts.SlowTimeout, AISlow, log)
	if err == nil {
		return finish(res)
	}
	return finish(p.fromTemplate(pr, category, outcome(err)))
}

func (p *Pipeline) attempt(ctx context.Context, req generator.Request, tier string, timeout time.Duration, method Method, log *zap.Logger) (EmailResult, error) {
	t0 := p.opts.Now()
	text, err := generator.GenerateWithin(ctx, p.gen, req, timeout)
	if err == nil {
		var subject, body string
		subject, body, err = generator.ParseEmail(text.Raw)
		if err == nil {
			if subject == "" {
				subject = p.engine.Subject(req.Prospect, req.Category)
			}
			p.opts.Metrics.ObserveAttempt(tier, "ok")
			log.Debug("ai attempt succeeded", zap.String("tier", tier), zap.Duration("took", p.opts.Now().Sub(t0)))
			return EmailResult{Subject: subject, Body: body, Method: method, Model: text.Model}, nil
		}
	}
	p.opts.Metrics.ObserveAttempt(tier, outcome(err))
	log.Debug("ai attempt failed",
		zap.String("tier", tier),
		zap.Duration("timeout", timeout),
		zap.Duration("took", p.opts.Now().Sub(t0)),
		zap.String("error", redact.Secrets(err.Error())),
	)
	return EmailResult{}, err
}

func (p *Pipeline) fromTemplate(pr prospect.Prospect, category industry.Category, why string) EmailResult {
	p.transition(pr, TemplateFallback)
	email := p.engine.Render(pr, category)
	return EmailResult{Subject: email.Subject, Body: email.Body, Method: Template, FallbackReason: why}
}

func (p *Pipeline) transition(pr prospect.Prospect, s State) {
	if p.opts.OnTransition != nil {
		p.opts.OnTransition(pr, s)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, generator.ErrTimeout):
		return "timeout"
	case errors.Is(err, generator.ErrMalformed):
		return "malformed"
	default:
		return "unreachable"
	}
}
