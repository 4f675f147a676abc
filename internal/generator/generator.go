// Package generator defines the AI email generation client contract and the
// outcome taxonomy shared by every backend.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/freshstart/outreach/internal/industry"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/templates"
)

var (
	// ErrUnreachable covers refused connections, DNS failures and non-2xx responses.
	ErrUnreachable = errors.New("ai endpoint unreachable")
	// ErrTimeout means the call did not finish within its deadline.
	ErrTimeout = errors.New("ai generation timed out")
	// ErrMalformed means the endpoint answered but the output was unusable.
	ErrMalformed = errors.New("ai response malformed")
)

// Request carries everything a backend needs to build its prompt.
type Request struct {
	Prospect prospect.Prospect
	Category industry.Category
	Content  templates.Content
	Sender   templates.Company
}

// Text is raw generated output.
type Text struct {
	Raw   string
	Model string
}

// Generator issues one generation call per invocation. Implementations must
// not retry internally and must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (Text, error)
	Model() string
}

// Pinger is implemented by backends that can cheaply check reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GenerateWithin runs one call bounded by timeout and maps every failure onto
// ErrTimeout, ErrUnreachable or ErrMalformed.
func GenerateWithin(ctx context.Context, g Generator, req Request, timeout time.Duration) (Text, error) {
	if g == nil {
		return Text{}, fmt.Errorf("%w: no generator configured", ErrUnreachable)
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := g.Generate(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrMalformed) {
			return Text{}, fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
		}
		return Text{}, Classify(err)
	}
	if isBlank(text.Raw) {
		return Text{}, fmt.Errorf("%w: empty output", ErrMalformed)
	}
	if text.Model == "" {
		text.Model = g.Model()
	}
	return text, nil
}

// Classify wraps err with the taxonomy sentinel it belongs to. Errors that
// already carry a sentinel are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) || errors.Is(err, ErrMalformed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
