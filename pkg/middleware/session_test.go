package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/partsquote/pkg/httputil"
	"github.com/utafrali/partsquote/pkg/logger"
)

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "valid", header: "3f2c9a4e-11d0-4c1e-9a55-0f8b2d7e6a10", wantStatus: http.StatusOK},
		{name: "missing", header: "", wantStatus: http.StatusBadRequest, wantCode: "MISSING_SESSION"},
		{name: "malformed", header: "../../etc/passwd", wantStatus: http.StatusBadRequest, wantCode: "INVALID_SESSION"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logger.SessionIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/quote", nil)
			if tc.header != "" {
				req.Header.Set(SessionHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode == "" {
				assert.Equal(t, tc.header, seen)
				return
			}

			assert.Empty(t, seen)
			var resp httputil.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("abcdEFGH_1234-xyz"))
	assert.False(t, ValidSessionID("short"))
	assert.False(t, ValidSessionID("has space in it"))
}
