package audit

import (
	"context"

	"github.com/sirupsen/logrus"

	"registra.org/internal/obs"
)

type requestIDKey struct{}
type actorKey struct{}

// WithRequestID attaches the request correlation id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the correlation id, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithActor attaches the acting caller's document number to the context.
func WithActor(ctx context.Context, document string) context.Context {
	return context.WithValue(ctx, actorKey{}, document)
}

// ActorFromContext returns the acting caller's document, or "" when absent.
func ActorFromContext(ctx context.Context) string {
	doc, _ := ctx.Value(actorKey{}).(string)
	return doc
}

// LogEvent emits one structured audit record. Request id and actor are taken
// from the context when present.
func LogEvent(ctx context.Context, event string, fields map[string]any) {
	entry := obs.Logger().WithField("type", "audit")
	if id := RequestIDFromContext(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if doc := ActorFromContext(ctx); doc != "" {
		entry = entry.WithField("actor", doc)
	}
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Info(event)
}
