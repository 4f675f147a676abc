package core

import "context"

// InputAdapter loads input records for pipeline processing.
type InputAdapter[In any] interface {
	Load(ctx context.Context) ([]In, error)
}

// OutputAdapter persists output records produced by pipeline processing.
type OutputAdapter[Out any] interface {
	Store(ctx context.Context, rows []Out) error
}

// ProcessFunc transforms one input item into one output item.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError is retryable, but at most ExtraRetries more times
// regardless of the worker's MaxRetries.
type LimitedTransientError struct {
	Err          error
	ExtraRetries int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MaxExtraRetries reports the per-error retry ceiling.
func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil {
		return 0
	}
	return e.ExtraRetries
}
