package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/michiboo/sdg11-backend/pkg/requestid"
)

// RequestID takes the request id from the X-Request-Id header, or generates
// one, and injects it into the request context for the layers below.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestid.Header)

		// If no header provided, check if Chi already generated one
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		if requestID == "" {
			requestID = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), requestID)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}
