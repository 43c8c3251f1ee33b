package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/partsquote/internal/search"
	"github.com/utafrali/partsquote/pkg/httputil"
	"github.com/utafrali/partsquote/pkg/middleware"
)

// SearchHandler serves the storefront's search-as-you-type box.
type SearchHandler struct {
	service *search.Service
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *search.Service, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: svc, logger: logger}
}

// Search handles GET /api/v1/search?q=
//
// Queries are debounced per client: a well-formed X-Session-ID header keys
// the client, otherwise its IP does. A query replaced by a newer one from
// the same client answers 200 with superseded set and no results.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	key := r.Header.Get(middleware.SessionHeader)
	if !middleware.ValidSessionID(key) {
		key = "ip:" + middleware.ClientIP(r)
	}

	results, err := h.service.Query(r.Context(), key, query)
	switch {
	case errors.Is(err, search.ErrSuperseded):
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{
			Data: SearchResponse{Query: query, Results: []search.Result{}, Superseded: true},
		})
		return
	case errors.Is(err, context.Canceled):
		// The client went away; nobody is listening for a response.
		return
	case err != nil:
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SearchResponse{Query: query, Results: results},
	})
}
