package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRendererUnavailable marks a tier that failed for a reason other
	// than its deadline. The orchestrator falls through to the next tier.
	ErrRendererUnavailable = errors.New("render: renderer unavailable")
	// ErrRendererTimeout marks a tier whose deadline expired.
	ErrRendererTimeout = errors.New("render: renderer timed out")
	// ErrAllRenderersFailed is terminal: every tier was attempted.
	ErrAllRenderersFailed = errors.New("render: all renderers failed")

	errNoRenderFunc = errors.New("render function is nil")
)

// UnavailableError wraps a tier failure.
type UnavailableError struct {
	Renderer string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render: renderer %q unavailable", e.Renderer)
	}
	return fmt.Sprintf("render: renderer %q unavailable: %v", e.Renderer, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrRendererUnavailable }

// TimeoutError reports a tier that exceeded its deadline.
type TimeoutError struct {
	Renderer string
	Err      error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render: renderer %q timed out", e.Renderer)
	}
	return fmt.Sprintf("render: renderer %q timed out: %v", e.Renderer, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrRendererTimeout }

// TierError records the failure of one tier in attempt order.
type TierError struct {
	Renderer string
	Err      error
}

func (e TierError) Error() string {
	return fmt.Sprintf("%s: %v", e.Renderer, e.Err)
}

// AllRenderersFailedError lists one TierError per attempted tier.
type AllRenderersFailedError struct {
	Attempts []TierError
}

func (e *AllRenderersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAllRenderersFailed.Error()
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, attempt.Error())
	}
	return ErrAllRenderersFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *AllRenderersFailedError) Is(target error) bool { return target == ErrAllRenderersFailed }

// Unwrap exposes the individual tier errors to errors.Is and errors.As.
func (e *AllRenderersFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		if attempt.Err != nil {
			out = append(out, attempt.Err)
		}
	}
	return out
}

// Unavailable wraps err as an UnavailableError unless it is already
// classified.
func Unavailable(renderer string, err error) error {
	var timeout *TimeoutError
	var unavailable *UnavailableError
	if errors.As(err, &timeout) || errors.As(err, &unavailable) {
		return err
	}
	return &UnavailableError{Renderer: renderer, Err: err}
}

// Classify turns a raw tier error into a TimeoutError when the attempt
// context expired, or an UnavailableError otherwise.
func Classify(ctx context.Context, renderer string, err error) error {
	if err == nil {
		return nil
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return &TimeoutError{Renderer: renderer, Err: err}
	}
	return Unavailable(renderer, err)
}
