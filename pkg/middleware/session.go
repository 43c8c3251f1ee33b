package middleware

import (
	"net/http"
	"regexp"

	"github.com/utafrali/partsquote/pkg/httputil"
	"github.com/utafrali/partsquote/pkg/logger"
)

// SessionHeader carries the anonymous quote session ID issued by the
// storefront.
const SessionHeader = "X-Session-ID"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// ValidSessionID reports whether id is usable as a session key.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// RequireSession rejects requests without a valid X-Session-ID header and
// stores the session ID in the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		switch {
		case id == "":
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "MISSING_SESSION", Message: SessionHeader + " header is required"},
			})
			return
		case !ValidSessionID(id):
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_SESSION", Message: SessionHeader + " header is malformed"},
			})
			return
		}

		ctx := r.Context()
		if logger.SessionIDFromContext(ctx) != id {
			ctx = logger.WithSessionID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
