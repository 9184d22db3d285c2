package shortener

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// RecoveryMiddleware recovers from panics in handlers and returns them as
// *PanicError.
func RecoveryMiddleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (result CommandResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					panicErr := NewPanicError(cmd.CommandType(), r, string(debug.Stack()))
					panicErr.CommandData = commandJSON(cmd)
					result = NewErrorResult(panicErr)
					err = panicErr
				}
			}()
			return next(ctx, cmd)
		}
	}
}

// LoggingMiddleware logs command execution.
type LoggingMiddleware struct {
	logger Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(logger Logger) *LoggingMiddleware {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &LoggingMiddleware{logger: logger}
}

// Middleware returns the middleware function.
func (m *LoggingMiddleware) Middleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			start := time.Now()

			m.logger.Debug("Dispatching command",
				"type", cmd.CommandType(),
				"slug", cmd.AggregateID(),
				"correlationId", CorrelationIDFromContext(ctx),
			)

			result, err := next(ctx, cmd)

			duration := time.Since(start)

			switch {
			case err != nil && IsDomainError(err):
				m.logger.Info("Command rejected",
					"type", cmd.CommandType(),
					"slug", cmd.AggregateID(),
					"duration", duration,
					"reason", err,
				)
			case err != nil:
				m.logger.Error("Command failed",
					"type", cmd.CommandType(),
					"slug", cmd.AggregateID(),
					"duration", duration,
					"error", err,
				)
			default:
				m.logger.Info("Command completed",
					"type", cmd.CommandType(),
					"slug", result.AggregateID,
					"version", result.Version,
					"duration", duration,
				)
			}

			return result, err
		}
	}
}

type correlationIDKey struct{}

// WithCorrelationID returns a context carrying the correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// CorrelationIDMiddleware ensures every command runs with a correlation ID.
// An ID already on the context wins, then the command's own, then a
// generated one. A nil generator produces UUIDs.
func CorrelationIDMiddleware(generator func() string) Middleware {
	if generator == nil {
		generator = uuid.NewString
	}

	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			if CorrelationIDFromContext(ctx) != "" {
				return next(ctx, cmd)
			}

			var correlationID string
			if base, ok := cmd.(interface{ GetCorrelationID() string }); ok {
				correlationID = base.GetCorrelationID()
			}
			if correlationID == "" {
				correlationID = generator()
			}

			return next(WithCorrelationID(ctx, correlationID), cmd)
		}
	}
}

type causationIDKey struct{}

// WithCausationID returns a context carrying the causation ID.
func WithCausationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, causationIDKey{}, id)
}

// CausationIDFromContext returns the causation ID from context.
func CausationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(causationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// CausationIDMiddleware makes the command ID the causation ID of the events
// the command produces.
func CausationIDMiddleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			if CausationIDFromContext(ctx) != "" {
				return next(ctx, cmd)
			}

			if base, ok := cmd.(interface{ GetCommandID() string }); ok && base.GetCommandID() != "" {
				ctx = WithCausationID(ctx, base.GetCommandID())
			}

			return next(ctx, cmd)
		}
	}
}

// commandJSON renders a command for diagnostics, or "" if it cannot.
func commandJSON(cmd Command) string {
	data, err := json.Marshal(cmd)
	if err != nil {
		return ""
	}
	return string(data)
}
