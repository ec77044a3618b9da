package logging

import (
	"context"

	"github.com/google/uuid"
)

type traceKey struct{}

// EnableDebugMode marks ctx so that CDebug lines are written whatever the logger's level, each
// tagged with id. An empty id gets a fresh one.
func EnableDebugMode(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()[:8]
	}
	return context.WithValue(ctx, traceKey{}, id)
}

// IsDebugMode reports whether ctx was marked by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the id ctx was marked with, or "".
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
