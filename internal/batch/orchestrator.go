// Package batch runs the hybrid pipeline over a prospect list with bounded
// concurrency, progress reporting and cooperative cancellation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/pkg/pipeline/core"
	"github.com/freshstart/outreach/pkg/pipeline/worker"
)

var (
	// ErrCancelled is returned with the partial run when Cancel or ctx stops
	// a batch early.
	ErrCancelled = errors.New("batch cancelled")
	// ErrEmptyBatch means there was nothing to process.
	ErrEmptyBatch = errors.New("batch has no prospects")
	// ErrNoValidProspects means every prospect failed validation.
	ErrNoValidProspects = errors.New("batch has no valid prospects")
)

// EmailGenerator produces one email per prospect and never fails.
type EmailGenerator interface {
	GenerateEmail(ctx context.Context, p prospect.Prospect) hybrid.EmailResult
}

// Item is one generated email, tagged with the prospect's input position.
type Item struct {
	Index    int
	Prospect prospect.Prospect
	Result   hybrid.EmailResult
}

// Skipped is a prospect that failed validation and was never generated.
type Skipped struct {
	Index    int
	Prospect prospect.Prospect
	Reason   string
}

// Progress is reported once per generated prospect. Index is the prospect's
// row in the input slice, skipped rows included, so it can exceed Total.
// Total and Completed count only prospects that passed validation.
type Progress struct {
	Index     int
	Total     int
	Completed int
	Prospect  prospect.Prospect
	Result    hybrid.EmailResult
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// Run is the outcome of one Orchestrator.Run call.
type Run struct {
	ID        string
	StartedAt time.Time
	Elapsed   time.Duration
	Items     []Item
	Skipped   []Skipped
	Cancelled bool

	AIFast   int
	AISlow   int
	Template int
}

// AI returns the number of emails produced by either AI tier.
func (r *Run) AI() int {
	return r.AIFast + r.AISlow
}

type Options struct {
	// Concurrency caps simultaneous pipeline executions. Defaults to 1, which
	// also keeps progress callbacks in input order.
	Concurrency int
	// RateLimitRPS paces pipeline starts across workers. <=0 disables.
	RateLimitRPS float64

	Logger  *zap.Logger
	Metrics *metrics.Recorder
	// Tracker, when set, receives every generated email.
	Tracker *results.Tracker
}

type Orchestrator struct {
	gen  EmailGenerator
	opts Options

	mu     sync.Mutex
	stop   chan struct{}
	closed bool
}

func New(gen EmailGenerator, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{gen: gen, opts: opts}
}

// Cancel stops the run in progress at the next prospect boundary. Emails
// already being generated are allowed to finish. It reports whether a run was
// active.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop == nil || o.closed {
		return false
	}
	close(o.stop)
	o.closed = true
	return true
}

type indexed struct {
	idx int
	p   prospect.Prospect
}

// Run generates an email for every valid prospect. Invalid prospects are
// listed in Run.Skipped. On cancellation the partial run is returned together
// with ErrCancelled.
func (o *Orchestrator) Run(ctx context.Context, prospects []prospect.Prospect, onProgress ProgressFunc) (*Run, error) {
	if len(prospects) == 0 {
		return nil, ErrEmptyBatch
	}

	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}
	log := o.opts.Logger.With(zap.String("run", run.ID))
	defer o.opts.Metrics.BatchStarted()()

	var valid []indexed
	for i, p := range prospects {
		p = p.Normalize()
		if err := p.Validate(); err != nil {
			run.Skipped = append(run.Skipped, Skipped{Index: i, Prospect: p, Reason: err.Error()})
			o.opts.Metrics.ObserveSkipped()
			log.Warn("skipping invalid prospect", zap.Int("index", i), zap.String("company", p.CompanyName), zap.Error(err))
			continue
		}
		valid = append(valid, indexed{idx: i, p: p})
	}
	if len(valid) == 0 {
		run.Elapsed = time.Since(run.StartedAt)
		return run, ErrNoValidProspects
	}

	stop := o.begin()
	defer o.end()

	log.Info("batch started",
		zap.Int("prospects", len(prospects)),
		zap.Int("valid", len(valid)),
		zap.Int("skipped", len(run.Skipped)),
		zap.Int("concurrency", o.opts.Concurrency),
	)

	// In-flight generations finish under their own tier deadlines even when
	// the batch is cancelled.
	process := core.ProcessFunc[indexed, hybrid.EmailResult](func(ctx context.Context, in indexed) (hybrid.EmailResult, error) {
		return o.gen.GenerateEmail(context.WithoutCancel(ctx), in.p), nil
	})

	completed := 0
	onResult := func(res worker.Result[indexed, hybrid.EmailResult]) error {
		if res.Err != nil {
			return nil
		}
		completed++
		item := Item{Index: res.Input.idx, Prospect: res.Input.p, Result: res.Output}
		run.Items = append(run.Items, item)
		switch item.Result.Method {
		case hybrid.AIFast:
			run.AIFast++
		case hybrid.AISlow:
			run.AISlow++
		default:
			run.Template++
		}
		if o.opts.Tracker != nil {
			o.opts.Tracker.RecordGeneration(run.ID, item.Index, item.Prospect, item.Result)
		}
		if onProgress != nil {
			onProgress(Progress{
				Index:     item.Index,
				Total:     len(valid),
				Completed: completed,
				Prospect:  item.Prospect,
				Result:    item.Result,
			})
		}
		return nil
	}

	_, err := worker.ProcessAllWithCallback[indexed, hybrid.EmailResult](ctx, valid, process, onResult, worker.Options{
		Workers:      o.opts.Concurrency,
		RateLimitRPS: o.opts.RateLimitRPS,
		Stop:         stop,
	})

	if err == nil && len(run.Items) < len(valid) {
		err = worker.ErrStopped
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}

	sort.Slice(run.Items, func(a, b int) bool { return run.Items[a].Index < run.Items[b].Index })
	run.Elapsed = time.Since(run.StartedAt)

	fields := []zap.Field{
		zap.Int("generated", len(run.Items)),
		zap.Int("ai_fast", run.AIFast),
		zap.Int("ai_slow", run.AISlow),
		zap.Int("template", run.Template),
		zap.Int("skipped", len(run.Skipped)),
		zap.Duration("elapsed", run.Elapsed),
	}

	switch {
	case err == nil:
		log.Info("batch finished", fields...)
		return run, nil
	case errors.Is(err, worker.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.Cancelled = true
		log.Warn("batch cancelled", fields...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return run, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
		}
		return run, ErrCancelled
	default:
		log.Error("batch failed", append(fields, zap.Error(err))...)
		return run, err
	}
}

func (o *Orchestrator) begin() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stop = make(chan struct{})
	o.closed = false
	return o.stop
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stop = nil
	o.closed = false
}
