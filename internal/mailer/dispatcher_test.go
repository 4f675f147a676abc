package mailer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/mailer"
	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/pkg/pipeline/core"
)

// scriptedSender fails addresses listed in fail, and fails each address in
// flaky once with a transient error before succeeding.
type scriptedSender struct {
	mu    sync.Mutex
	fail  map[string]bool
	flaky map[string]bool
	sent  []mailer.Message
}

func (s *scriptedSender) Name() string { return "scripted" }

func (s *scriptedSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[msg.To] {
		return "", errors.Join(mailer.ErrSendFailure, errors.New("550 mailbox unavailable"))
	}
	if s.flaky[msg.To] {
		delete(s.flaky, msg.To)
		return "", &core.TransientError{Err: errors.New("421 try again")}
	}
	s.sent = append(s.sent, msg)
	return "<" + msg.To + ">", nil
}

func record(company, email, body string) results.Record {
	return results.Record{
		Prospect: prospect.Prospect{CompanyName: company, Email: email},
		Result:   hybrid.EmailResult{Subject: "Hi " + company, Body: body, Method: hybrid.Template},
	}
}

func TestSendAll(t *testing.T) {
	tracker := results.NewTracker()
	recs := []results.Record{
		record("Turner Industries", "facilities@turner.com", "Hello Turner"),
		record("Acme", "bounce@acme.test", "Hello Acme"),
		record("Beta", "flaky@beta.test", "Hello Beta\n\nFresh Start Cleaning Co."),
	}
	sent := record("Done Co", "done@done.test", "x")
	sent.Sent = true
	recs = append(recs, sent)
	for _, r := range recs {
		tracker.Add(r)
	}

	sender := &scriptedSender{
		fail:  map[string]bool{"bounce@acme.test": true},
		flaky: map[string]bool{"flaky@beta.test": true},
	}
	rec := metrics.New()
	d := mailer.NewDispatcher(sender, tracker, mailer.DispatchOptions{
		FromAddress:  "hello@freshstart.example",
		FromName:     "Fresh Start Cleaning Co.",
		Signature:    "Best regards,\nFresh Start Cleaning Co.",
		RateLimitRPS: -1,
		MaxRetries:   2,
		Logger:       zaptest.NewLogger(t),
		Metrics:      rec,
		Now:          func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	})
	// Transient retries back off for a few hundred milliseconds at most.
	counts, err := d.SendAll(context.Background(), tracker.Export())
	require.NoError(t, err)

	assert.Equal(t, results.SendCounts{Attempted: 3, Succeeded: 2, Failed: 1}, counts)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Hello Turner\n\nBest regards,\nFresh Start Cleaning Co.", sender.sent[0].Body)
	assert.Equal(t, "Hello Beta\n\nFresh Start Cleaning Co.", sender.sent[1].Body)
	assert.Equal(t, "Fresh Start Cleaning Co.", sender.sent[0].FromName)

	exported := tracker.Export()
	assert.True(t, exported[0].Sent)
	assert.Equal(t, "<facilities@turner.com>", exported[0].MessageID)
	assert.False(t, exported[1].Sent)
	assert.Contains(t, exported[1].SendError, "550")
	assert.True(t, exported[2].Sent)

	unsent := tracker.Unsent()
	require.Len(t, unsent, 1)
	assert.Equal(t, "Acme", unsent[0].Prospect.CompanyName)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.EmailsSent.WithLabelValues("scripted", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.EmailsSent.WithLabelValues("scripted", "failure")))
}

func TestSendAllNothingPending(t *testing.T) {
	d := mailer.NewDispatcher(&scriptedSender{}, nil, mailer.DispatchOptions{})
	sent := record("A", "a@a.test", "x")
	sent.Sent = true

	counts, err := d.SendAll(context.Background(), []results.Record{sent})
	require.NoError(t, err)
	assert.Zero(t, counts.Attempted)
}

func TestSendAllHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := mailer.NewDispatcher(&scriptedSender{}, nil, mailer.DispatchOptions{RateLimitRPS: -1})
	_, err := d.SendAll(ctx, []results.Record{record("A", "a@a.test", "x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendAllZeroRetriesTriesOnce(t *testing.T) {
	sender := &scriptedSender{flaky: map[string]bool{"flaky@beta.test": true}}
	tracker := results.NewTracker()
	d := mailer.NewDispatcher(sender, tracker, mailer.DispatchOptions{RateLimitRPS: -1, MaxRetries: 0})

	counts, err := d.SendAll(context.Background(), []results.Record{record("Beta", "flaky@beta.test", "x")})
	require.NoError(t, err)
	assert.Equal(t, results.SendCounts{Attempted: 1, Failed: 1}, counts)
	assert.Empty(t, sender.sent)
	// The transient failure was not retried, so the next send succeeds.
	assert.False(t, sender.flaky["flaky@beta.test"])
	require.Len(t, tracker.Sends(), 1)
	assert.Contains(t, tracker.Sends()[0].Error, "421")
}
