package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/partsquote/pkg/logger"
)

// RequestLogger returns middleware that stores a request-scoped logger in
// the context, retrievable with logger.FromContext. The logger carries
// correlation_id, session_id, trace_id and span_id when they are known.
// A well-formed X-Session-ID header is picked up here so every log line of
// the request is tagged, including lines written before RequireSession runs.
//
// Mount it after RequestLogging (which sets correlation_id) and Tracing
// (which starts the span).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := r.Header.Get(SessionHeader); ValidSessionID(id) {
				ctx = logger.WithSessionID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
