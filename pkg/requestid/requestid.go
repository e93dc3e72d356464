// Package requestid carries a per-request correlation id through the
// context, so every log line and error reply of one analysis request can be
// tied together.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the HTTP header clients may use to supply their own id.
const Header = "X-Request-Id"

type contextKey string

const requestIDKey contextKey = "request_id"

// Generate returns a fresh unique request id.
func Generate() string {
	return uuid.New().String()
}

func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromContext returns the request id, or the empty string when none is set.
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FromContextPtr is the reply-rendering variant: a nil pointer keeps the id
// out of the serialized error body entirely.
func FromContextPtr(ctx context.Context) *string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return &requestID
	}
	return nil
}

// FromRequest returns the request id bound to the HTTP request, or the empty
// string when none is set.
func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
