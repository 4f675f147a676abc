package batch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/freshstart/outreach/internal/batch"
	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/internal/templates"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echoGenerator writes the company name into the body and tracks concurrency.
type echoGenerator struct {
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	ctxErrs  atomic.Int32
}

func (g *echoGenerator) GenerateEmail(ctx context.Context, p prospect.Prospect) hybrid.EmailResult {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		m := g.maxSeen.Load()
		if n <= m || g.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(g.delay)
	if ctx.Err() != nil {
		g.ctxErrs.Add(1)
	}
	method := hybrid.Template
	if len(p.CompanyName)%2 == 0 {
		method = hybrid.AIFast
	}
	return hybrid.EmailResult{Subject: "For " + p.CompanyName, Body: "Hello " + p.CompanyName, Method: method}
}

func prospects(n int) []prospect.Prospect {
	out := make([]prospect.Prospect, n)
	for i := range out {
		out[i] = prospect.Prospect{CompanyName: fmt.Sprintf("Company %d", i), Email: fmt.Sprintf("c%d@example.test", i)}
	}
	return out
}

func TestRunGeneratesInInputOrder(t *testing.T) {
	gen := &echoGenerator{}
	tracker := results.NewTracker()
	o := batch.New(gen, batch.Options{Logger: zaptest.NewLogger(t), Tracker: tracker, Metrics: metrics.New()})

	var seen []int
	run, err := o.Run(context.Background(), prospects(8), func(p batch.Progress) {
		seen = append(seen, p.Index)
		assert.Equal(t, 8, p.Total)
		assert.Equal(t, len(seen), p.Completed)
		assert.Equal(t, "Hello "+p.Prospect.CompanyName, p.Result.Body)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, seen)
	require.Len(t, run.Items, 8)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Cancelled)
	assert.Equal(t, 8, run.AIFast+run.AISlow+run.Template)
	assert.Equal(t, run.AIFast, run.AI())
	assert.EqualValues(t, 1, gen.maxSeen.Load())
	assert.Equal(t, 8, tracker.Len())
}

func TestRunSkipsInvalidProspects(t *testing.T) {
	gen := &echoGenerator{}
	in := []prospect.Prospect{
		{CompanyName: "Turner Industries", Email: "facilities@turner.com"},
		{CompanyName: "No Email"},
		{CompanyName: "Bad Email", Email: "nobody"},
		{CompanyName: "Acme", Email: "ops@acme.test"},
	}

	run, err := batch.New(gen, batch.Options{}).Run(context.Background(), in, nil)
	require.NoError(t, err)

	require.Len(t, run.Items, 2)
	assert.Equal(t, 0, run.Items[0].Index)
	assert.Equal(t, 3, run.Items[1].Index)
	require.Len(t, run.Skipped, 2)
	assert.Equal(t, 1, run.Skipped[0].Index)
	assert.Contains(t, run.Skipped[1].Reason, "email")
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestRunEmptyAndAllInvalid(t *testing.T) {
	o := batch.New(&echoGenerator{}, batch.Options{})

	run, err := o.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, batch.ErrEmptyBatch)
	assert.Nil(t, run)

	run, err = o.Run(context.Background(), []prospect.Prospect{{CompanyName: "x"}}, nil)
	assert.ErrorIs(t, err, batch.ErrNoValidProspects)
	require.NotNil(t, run)
	assert.Len(t, run.Skipped, 1)
	assert.Empty(t, run.Items)
}

func TestCancelAfterKCompletions(t *testing.T) {
	const k = 3
	gen := &echoGenerator{delay: 5 * time.Millisecond}
	o := batch.New(gen, batch.Options{})

	run, err := o.Run(context.Background(), prospects(10), func(p batch.Progress) {
		if p.Completed == k {
			assert.True(t, o.Cancel())
		}
	})

	require.ErrorIs(t, err, batch.ErrCancelled)
	assert.True(t, run.Cancelled)
	assert.Len(t, run.Items, k)
	assert.EqualValues(t, k, gen.calls.Load())
	assert.False(t, o.Cancel(), "no run should be active after Run returns")
}

func TestContextCancelLetsInFlightFinish(t *testing.T) {
	gen := &echoGenerator{delay: 20 * time.Millisecond}
	o := batch.New(gen, batch.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := o.Run(ctx, prospects(5), func(p batch.Progress) {
		if p.Completed == 2 {
			cancel()
		}
	})

	require.ErrorIs(t, err, batch.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, run.Items, 2)
	assert.EqualValues(t, 0, gen.ctxErrs.Load())
}

func TestConcurrencyIsBoundedAndAttributed(t *testing.T) {
	gen := &echoGenerator{delay: 20 * time.Millisecond}
	o := batch.New(gen, batch.Options{Concurrency: 3})

	var mu sync.Mutex
	calls := 0
	run, err := o.Run(context.Background(), prospects(12), func(batch.Progress) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, 12, calls)
	assert.LessOrEqual(t, gen.maxSeen.Load(), int32(3))
	require.Len(t, run.Items, 12)
	for i, item := range run.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, "Hello "+item.Prospect.CompanyName, item.Result.Body)
	}
}

func TestTemplateOnlyPipelineTurnerScenario(t *testing.T) {
	p := hybrid.New(nil, templates.NewEngine(templates.Company{}, nil), hybrid.Options{})
	o := batch.New(p, batch.Options{})

	run, err := o.Run(context.Background(), []prospect.Prospect{{
		CompanyName: "Turner Industries",
		Email:       "facilities@turner.com",
		Industry:    "Construction",
	}}, nil)
	require.NoError(t, err)
	require.Len(t, run.Items, 1)

	res := run.Items[0].Result
	assert.Equal(t, hybrid.Template, res.Method)
	assert.Contains(t, res.Body, "Turner Industries")
	assert.Equal(t, 1, run.Template)
}

func TestCancelWithoutRun(t *testing.T) {
	o := batch.New(&echoGenerator{}, batch.Options{})
	assert.False(t, o.Cancel())

	// A stale Cancel must not affect the next run.
	run, err := o.Run(context.Background(), prospects(2), nil)
	require.NoError(t, err)
	assert.Len(t, run.Items, 2)
	assert.False(t, errors.Is(err, batch.ErrCancelled))
}

func TestDeadlineDuringRateLimitIsCancelled(t *testing.T) {
	gen := &echoGenerator{}
	o := batch.New(gen, batch.Options{RateLimitRPS: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	run, err := o.Run(ctx, prospects(2), nil)
	require.ErrorIs(t, err, batch.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, run.Cancelled)
	assert.Len(t, run.Items, 1)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestProgressIndexIsInputRow(t *testing.T) {
	in := prospects(4)
	in[1].Email = "not-an-email"

	var got []batch.Progress
	o := batch.New(&echoGenerator{}, batch.Options{Concurrency: 1})
	run, err := o.Run(context.Background(), in, func(p batch.Progress) {
		got = append(got, p)
	})
	require.NoError(t, err)
	require.Len(t, run.Skipped, 1)
	require.Len(t, got, 3)

	assert.Equal(t, []int{0, 2, 3}, []int{got[0].Index, got[1].Index, got[2].Index})
	for _, p := range got {
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, in[p.Index].CompanyName, p.Prospect.CompanyName)
	}
}
