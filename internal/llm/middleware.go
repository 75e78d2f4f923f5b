package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"sopflow/internal/settings"
	"sopflow/internal/types"
)

// Middleware decorates a Provider to inject cross-cutting concerns
// (rate limiting, retries, logging, timeouts).
type Middleware func(Provider) Provider

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Provider, mws ...Middleware) Provider {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Operation names passed to interceptors and used in log lines.
const (
	OpAnalyze  = "analyze"
	OpRefine   = "refine"
	OpEnrich   = "enrich"
	OpDocument = "document"
)

// interceptor runs around one provider call. call performs the call with
// the context it is given.
type interceptor func(ctx context.Context, op string, call func(context.Context) error) error

// intercept adapts an interceptor to the four-method Provider surface.
func intercept(next Provider, fn interceptor) Provider {
	return &intercepted{next: next, fn: fn}
}

type intercepted struct {
	next Provider
	fn   interceptor
	stop func()
}

func (i *intercepted) Name() string        { return i.next.Name() }
func (i *intercepted) SupportsFiles() bool { return SupportsFiles(i.next) }

// Close releases what this layer holds, then closes the layers below it.
func (i *intercepted) Close() error {
	if i.stop != nil {
		i.stop()
	}
	if c, ok := i.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (i *intercepted) GenerateInitialFlow(ctx context.Context, cfg settings.AiConfig, src Source) (*types.ProcessFlow, error) {
	var out *types.ProcessFlow
	err := i.fn(ctx, OpAnalyze, func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateInitialFlow(ctx, cfg, src)
		return err
	})
	return out, err
}

func (i *intercepted) RefineFlow(ctx context.Context, cfg settings.AiConfig, history []types.ChatMessage, flow *types.ProcessFlow) (*Refinement, error) {
	var out *Refinement
	err := i.fn(ctx, OpRefine, func(ctx context.Context) error {
		var err error
		out, err = i.next.RefineFlow(ctx, cfg, history, flow)
		return err
	})
	return out, err
}

func (i *intercepted) EnrichStep(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow, taskID, description string) (*types.ProcessFlow, error) {
	var out *types.ProcessFlow
	err := i.fn(ctx, OpEnrich, func(ctx context.Context) error {
		var err error
		out, err = i.next.EnrichStep(ctx, cfg, flow, taskID, description)
		return err
	})
	return out, err
}

func (i *intercepted) GenerateDocument(ctx context.Context, cfg settings.AiConfig, flow *types.ProcessFlow) (string, error) {
	var out string
	err := i.fn(ctx, OpDocument, func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateDocument(ctx, cfg, flow)
		return err
	})
	return out, err
}

// -------- Rate Limiting (using rpsLimiter) --------

// RateLimit limits request rate using the custom rpsLimiter.
// If rps <= 0, the limiter is effectively disabled. Closing the wrapped
// provider stops the limiter's refill goroutine.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Provider) Provider {
		rl := newRPSLimiter(rps, burst) // nil when disabled
		return &intercepted{
			next: next,
			stop: rl.Stop,
			fn: func(ctx context.Context, _ string, call func(context.Context) error) error {
				if err := rl.Acquire(ctx); err != nil {
					return &TransportError{Provider: next.Name(), Err: err}
				}
				return call(ctx)
			},
		}
	}
}

// -------- Retry with exponential backoff --------

// Retry retries a call up to maxAttempts with exponential backoff starting at
// baseDelay, or longer when the provider asked for a longer wait. Only errors IsRetryable accepts are retried. If the context is
// canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Provider) Provider {
		return intercept(next, func(ctx context.Context, _ string, call func(context.Context) error) error {
			var last error
			for i := 0; i < maxAttempts; i++ {
				err := call(ctx)
				if err == nil {
					return nil
				}
				if !IsRetryable(err) {
					return err
				}
				last = err
				if i == maxAttempts-1 {
					break
				}
				wait := baseDelay * time.Duration(1<<i)
				var te *TransportError
				if errors.As(err, &te) && te.RetryAfter > wait {
					wait = te.RetryAfter
				}
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return last
				case <-t.C:
				}
			}
			return last
		})
	}
}

// -------- Timeout --------

// DefaultTimeout bounds a single provider call when the caller sets none.
const DefaultTimeout = 2 * time.Minute

// WithTimeout bounds each call to d. An expired deadline surfaces as a
// TransportError with status 0.
func WithTimeout(d time.Duration) Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}
	return func(next Provider) Provider {
		return intercept(next, func(ctx context.Context, _ string, call func(context.Context) error) error {
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			err := call(cctx)
			if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return &TransportError{
					Provider: next.Name(),
					Err:      fmt.Errorf("no response within %s: %w", d, context.DeadlineExceeded),
				}
			}
			return err
		})
	}
}

// -------- Logging --------

// WithLogging logs each call and its errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Provider) Provider {
		return intercept(next, func(ctx context.Context, op string, call func(context.Context) error) error {
			start := time.Now()
			logger.Printf("LLM request (%s/%s)", op, next.Name())
			err := call(ctx)
			if err != nil {
				logger.Printf("LLM error (%s/%s): %v", op, next.Name(), err)
				return err
			}
			logger.Printf("LLM done (%s/%s) in %s", op, next.Name(), time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
}
