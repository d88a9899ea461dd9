// CLAUDE:SUMMARY Transport-neutral endpoint type, middleware chain and the logging/tracing/timeout/recovery middlewares shared by the MCP and HTTP surfaces.
package kit

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Endpoint is one operation, independent of the transport that carries it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares left-to-right: the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call with its duration, transport and request id.
func Logging(logger *slog.Logger, name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				logger.WarnContext(ctx, "endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.DebugContext(ctx, "endpoint ok", attrs...)
			}
			return resp, err
		}
	}
}

// Tracing wraps every call in a span named after the endpoint. Spans go to
// the global tracer provider, a no-op unless telemetry is configured.
func Tracing(name string) Middleware {
	tracer := otel.Tracer("github.com/hazyhaar/shadowq/kit")
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			ctx, span := tracer.Start(ctx, "shadowq."+name)
			defer span.End()
			span.SetAttributes(
				attribute.String("shadowq.transport", GetTransport(ctx)),
				attribute.String("shadowq.request_id", GetRequestID(ctx)),
			)
			resp, err := next(ctx, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return resp, err
		}
	}
}

// Timeout bounds the call with d. Zero disables it.
func Timeout(d time.Duration) Middleware {
	return func(next Endpoint) Endpoint {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req any) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// Recovery turns a panic into an *ErrPanic.
func Recovery(logger *slog.Logger) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "endpoint panic recovered",
						"panic", r,
						"stack", string(debug.Stack()))
					err = &ErrPanic{Value: r}
				}
			}()
			return next(ctx, req)
		}
	}
}

// ErrPanic wraps a recovered panic value.
type ErrPanic struct {
	Value any
}

func (e *ErrPanic) Error() string {
	return fmt.Sprintf("kit: endpoint panicked: %v", e.Value)
}
