package solveports

import "context"

// Tracer provides lightweight structured tracing for solve operations.
type Tracer interface {
	// StartSpan begins a span and returns a context carrying it plus a
	// finish function that records the span's outcome.
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))

	// Event records a point-in-time event within the current span.
	Event(ctx context.Context, name string, attrs map[string]any)
}
