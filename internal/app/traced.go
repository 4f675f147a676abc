package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/freshstart/outreach/internal/generator"
	"github.com/freshstart/outreach/pkg/pipeline/redact"
)

// tracedGenerator logs every AI request and response with the attempt number
// per prospect, so fast and slow tiers can be told apart in the logs.
type tracedGenerator struct {
	next   generator.Generator
	logger *zap.Logger

	mu       sync.Mutex
	attempts map[string]int
}

var (
	_ generator.Generator = (*tracedGenerator)(nil)
	_ generator.Pinger    = (*tracedGenerator)(nil)
)

func newTracedGenerator(next generator.Generator, logger *zap.Logger) *tracedGenerator {
	return &tracedGenerator{next: next, logger: logger, attempts: make(map[string]int)}
}

func (t *tracedGenerator) Model() string { return t.next.Model() }

// Ping forwards to the wrapped backend; backends without a ping are treated
// as reachable.
func (t *tracedGenerator) Ping(ctx context.Context) error {
	if p, ok := t.next.(generator.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (t *tracedGenerator) Generate(ctx context.Context, req generator.Request) (generator.Text, error) {
	key := req.Prospect.Key()
	attempt := t.nextAttempt(key)

	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	log := t.logger.With(
		zap.String("company", req.Prospect.CompanyName),
		zap.String("category", string(req.Category)),
		zap.Int("attempt", attempt),
		zap.String("model", t.next.Model()),
	)
	log.Debug("ai request", zap.String("deadline_in", deadlineIn))

	start := time.Now()
	out, err := t.next.Generate(ctx, req)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		log.Info("ai response",
			zap.String("status", "error"),
			zap.Duration("duration", elapsed),
			zap.String("error", redact.Secrets(err.Error())),
		)
		return out, err
	}
	log.Info("ai response",
		zap.String("status", "ok"),
		zap.Duration("duration", elapsed),
		zap.Int("chars", len(out.Raw)),
		zap.String("first_line", firstLine(out.Raw)),
	)
	return out, nil
}

func (t *tracedGenerator) nextAttempt(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[key]++
	return t.attempts[key]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
