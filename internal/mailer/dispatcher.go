package mailer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/results"
	"github.com/freshstart/outreach/pkg/pipeline/redact"
	"github.com/freshstart/outreach/pkg/pipeline/worker"
)

type DispatchOptions struct {
	FromAddress string
	FromName    string
	// Signature is appended to bodies that do not mention FromName.
	Signature string

	// RateLimitRPS paces sends. Defaults to 1 message per second.
	RateLimitRPS float64
	// MaxRetries is how many extra attempts a transient failure gets. Zero
	// disables retries.
	MaxRetries int
	// SendTimeout bounds each delivery attempt. Defaults to 30s.
	SendTimeout time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Dispatcher sends tracked results and records every attempt. Failures are
// recorded, never fatal to the batch.
type Dispatcher struct {
	sender  Sender
	tracker *results.Tracker
	opts    DispatchOptions
}

func NewDispatcher(sender Sender, tracker *results.Tracker, opts DispatchOptions) *Dispatcher {
	if opts.RateLimitRPS == 0 {
		opts.RateLimitRPS = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if tracker == nil {
		tracker = results.NewTracker()
	}
	return &Dispatcher{sender: sender, tracker: tracker, opts: opts}
}

// Message builds the outgoing message for a tracked record.
func (d *Dispatcher) Message(rec results.Record) Message {
	return Message{
		FromAddress: d.opts.FromAddress,
		FromName:    d.opts.FromName,
		To:          strings.TrimSpace(rec.Prospect.Email),
		Subject:     rec.Result.Subject,
		Body:        WithSignature(rec.Result.Body, d.opts.Signature, d.opts.FromName),
		Date:        d.opts.Now(),
	}
}

// SendAll delivers every record that has not been sent yet, one at a time.
// The returned counts cover this call only.
func (d *Dispatcher) SendAll(ctx context.Context, recs []results.Record) (results.SendCounts, error) {
	var pending []results.Record
	for _, r := range recs {
		if !r.Sent {
			pending = append(pending, r)
		}
	}
	var counts results.SendCounts
	if len(pending) == 0 {
		return counts, nil
	}

	send := func(ctx context.Context, rec results.Record) (string, error) {
		return d.sender.Send(ctx, d.Message(rec))
	}

	onResult := func(res worker.Result[results.Record, string]) error {
		rec := d.record(res.Input, res.Output, res.Err)
		counts.Attempted++
		if rec.Success {
			counts.Succeeded++
		} else {
			counts.Failed++
		}
		return nil
	}

	_, err := worker.ProcessAllWithCallback(ctx, pending, send, onResult, worker.Options{
		Workers:        1,
		MaxRetries:     d.opts.MaxRetries,
		RequestTimeout: d.opts.SendTimeout,
		RateLimitRPS:   d.opts.RateLimitRPS,
		FailurePolicy:  worker.FailurePolicyPartialOutput,
	})
	d.opts.Logger.Info("send finished",
		zap.String("transport", d.sender.Name()),
		zap.Int("attempted", counts.Attempted),
		zap.Int("succeeded", counts.Succeeded),
		zap.Int("failed", counts.Failed),
	)
	if err != nil && !errors.Is(err, worker.ErrStopped) {
		return counts, err
	}
	return counts, nil
}

func (d *Dispatcher) record(rec results.Record, messageID string, err error) results.SendRecord {
	s := results.SendRecord{
		CompanyName: rec.Prospect.CompanyName,
		Email:       rec.Prospect.Email,
		Timestamp:   d.opts.Now(),
		Success:     err == nil,
		MessageID:   messageID,
	}
	log := d.opts.Logger.With(zap.String("to", rec.Prospect.Email), zap.String("company", rec.Prospect.CompanyName))
	if err != nil {
		s.Error = redact.Secrets(err.Error())
		log.Warn("send failed", zap.String("error", s.Error))
	} else {
		log.Info("email sent", zap.String("message_id", messageID))
	}
	d.tracker.RecordSend(s)
	d.opts.Metrics.ObserveSend(d.sender.Name(), s.Success)
	return s
}
