package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/freshstart/outreach/pkg/pipeline/core"
	"golang.org/x/time/rate"
)

// ErrStopped is returned alongside the completed results when Options.Stop
// closes before every item was dispatched.
var ErrStopped = errors.New("worker: stopped before all items were processed")

type FailurePolicy int

const (
	FailurePolicyPartialOutput FailurePolicy = iota
	FailurePolicyFailFast
)

type Options struct {
	// Workers caps concurrent processor invocations. Defaults to 1.
	Workers    int
	MaxRetries int
	// RequestTimeout bounds each processor attempt. Set to <=0 to let the
	// processor manage its own deadlines.
	RequestTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64

	FailurePolicy FailurePolicy

	// Stop asks workers to finish their current item and take no new ones.
	Stop <-chan struct{}

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Index    int
	Input    In
	Output   Out
	Err      error
	Attempts int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// ProcessAll runs the processor over all input items.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	return ProcessAllWithCallback(ctx, items, processor, nil, opts)
}

// ProcessAllWithCallback runs the processor over all input items and invokes
// onResult as each item completes. Callbacks are serialized and run on the
// worker that produced the result before it takes its next item, so with a
// single worker they arrive in submission order.
//
// The returned slice holds every completed item in input order. When the run
// ends early (Stop, ctx cancellation, fail-fast, callback error) the completed
// results are still returned together with the error.
func ProcessAllWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	type job struct {
		idx int
		in  In
	}

	jobs := make(chan job)

	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	var out []Result[In, Out]
	fail := func(err error) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	stopped := func() bool {
		if opts.Stop == nil {
			return false
		}
		select {
		case <-opts.Stop:
			return true
		default:
			return false
		}
	}

	workerFn := func() {
		defer wg.Done()
		for {
			if stopped() || runCtx.Err() != nil {
				return
			}
			var j job
			var ok bool
			select {
			case j, ok = <-jobs:
				if !ok {
					return
				}
			case <-opts.Stop:
				return
			case <-runCtx.Done():
				return
			}
			// A job and the stop signal can be ready at once.
			if stopped() || runCtx.Err() != nil {
				return
			}

			res := processOne(runCtx, j.idx, j.in, processor, limiter, opts)
			// Cancelled while waiting for the limiter: the item was never
			// processed and counts as not dispatched.
			if res.Attempts == 0 && res.Err != nil && runCtx.Err() != nil {
				return
			}

			mu.Lock()
			out = append(out, res)
			if onResult != nil {
				if err := onResult(res); err != nil {
					fail(err)
				}
			}
			if res.Err != nil && opts.FailurePolicy == FailurePolicyFailFast {
				fail(res.Err)
			}
			mu.Unlock()
		}
	}

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go workerFn()
	}

	feederDone := make(chan struct{})
	go func() {
		defer close(feederDone)
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{idx: i, in: item}:
			case <-opts.Stop:
				return
			case <-runCtx.Done():
				return
			}
		}
	}()

	wg.Wait()
	cancel()
	<-feederDone

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })

	if firstErr != nil {
		return out, firstErr
	}
	if err := ctx.Err(); err != nil {
		if len(out) < len(items) {
			return out, err
		}
		for _, r := range out {
			if r.Err != nil && errors.Is(r.Err, err) {
				return out, err
			}
		}
	}
	if len(out) < len(items) {
		return out, ErrStopped
	}
	return out, nil
}

func processOne[In any, Out any](
	ctx context.Context,
	idx int,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) Result[In, Out] {
	res, attempts, err := processWithRetry(ctx, item, processor, limiter, opts)
	return Result[In, Out]{
		Index:    idx,
		Input:    item,
		Output:   res,
		Err:      err,
		Attempts: attempts,
	}
}

func processWithRetry[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) (Out, int, error) {
	var lastOut Out
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastOut, attempt, err
		}

		if err := waitLimiter(ctx, limiter); err != nil {
			return lastOut, attempt, err
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if opts.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, opts.RequestTimeout)
		}
		result, err := processor(reqCtx, item)
		lastOut = result
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, attempt + 1, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return lastOut, attempt + 1, ctx.Err()
		}
		maxRetries := maxExtraRetries(opts.MaxRetries, err)
		if !isTransient(err) || attempt >= maxRetries {
			return lastOut, attempt + 1, err
		}

		sleep := backoffSleep(opts.BackoffInitial, opts.BackoffMax, opts.BackoffJitterFrac, attempt)
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return lastOut, attempt + 1, ctx.Err()
		}
	}
}

// waitLimiter blocks for a limiter token. Unlike rate.Limiter.Wait it keeps
// waiting past a deadline it cannot meet, so the only error is ctx's own.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	r := limiter.Reserve()
	d := r.Delay()
	if d == 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

type retryCap interface {
	MaxExtraRetries() int
}

func maxExtraRetries(defaultRetries int, err error) int {
	if defaultRetries < 0 {
		defaultRetries = 0
	}
	var capErr retryCap
	if errors.As(err, &capErr) {
		limited := capErr.MaxExtraRetries()
		if limited < 0 {
			limited = 0
		}
		if limited < defaultRetries {
			return limited
		}
	}
	return defaultRetries
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	return isTransient(err)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *core.TransientError
	if errors.As(err, &te) {
		return true
	}
	var lte *core.LimitedTransientError
	if errors.As(err, &lte) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
