package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/partsquote/pkg/logger"
)

func loggedRouter(buf *bytes.Buffer, status int) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogging(logger.NewWithWriter("test-svc", "debug", buf)))
	r.Patch("/api/v1/quote/items/{itemId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})
	return r
}

func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestRequestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusUnprocessableEntity, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var buf bytes.Buffer
			req := httptest.NewRequest(http.MethodPatch, "/api/v1/quote/items/abc", nil)
			loggedRouter(&buf, tc.status).ServeHTTP(httptest.NewRecorder(), req)

			lines := accessLines(t, &buf)
			require.Len(t, lines, 1)
			assert.Equal(t, tc.level, lines[0]["level"])
			assert.Equal(t, float64(tc.status), lines[0]["status"])
			assert.Equal(t, "/api/v1/quote/items/{itemId}", lines[0]["route"])
			assert.Equal(t, float64(len(`{"data":{}}`)), lines[0]["bytes"])
		})
	}
}

func TestRequestLogging_ProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	loggedRouter(&buf, http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	lines := accessLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "DEBUG", lines[0]["level"])
}

func TestRequestLogging_CorrelationID(t *testing.T) {
	t.Run("reuses inbound header", func(t *testing.T) {
		var buf bytes.Buffer
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/quote/items/abc", nil)
		req.Header.Set("X-Request-ID", "req-from-edge")
		rec := httptest.NewRecorder()
		loggedRouter(&buf, http.StatusOK).ServeHTTP(rec, req)

		assert.Equal(t, "req-from-edge", rec.Header().Get(CorrelationHeader))
		assert.Equal(t, "req-from-edge", accessLines(t, &buf)[0]["correlation_id"])
	})

	t.Run("generates when absent", func(t *testing.T) {
		var buf bytes.Buffer
		rec := httptest.NewRecorder()
		loggedRouter(&buf, http.StatusOK).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/quote/items/abc", nil))

		assert.Len(t, rec.Header().Get(CorrelationHeader), 36)
	})
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newStatusRecorder(rec)

	_, _ = rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, rw.status)
	assert.Equal(t, 2, rw.bytes)
}
