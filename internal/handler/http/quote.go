package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/partsquote/internal/quote"
	"github.com/utafrali/partsquote/internal/service"
	"github.com/utafrali/partsquote/pkg/httputil"
	"github.com/utafrali/partsquote/pkg/logger"
	"github.com/utafrali/partsquote/pkg/validator"
)

// maxBodyBytes bounds request bodies; a full contact form is well under it.
const maxBodyBytes = 64 << 10

// QuoteHandler handles HTTP requests for the quote cart endpoints.
type QuoteHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewQuoteHandler creates a new quote HTTP handler.
func NewQuoteHandler(svc *service.CartService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		service: svc,
		logger:  logger,
	}
}

// GetCart handles GET /api/v1/quote
func (h *QuoteHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCart(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(view)})
}

// AddItem handles POST /api/v1/quote/items
func (h *QuoteHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.service.AddItem(r.Context(), sessionID(r), service.AddItemInput{
		ProductID:        req.ProductID,
		ProductSlug:      req.ProductSlug,
		SelectedSize:     req.SelectedSize,
		Quantity:         req.Quantity,
		MaterialTestCert: req.MaterialTestCert,
		CustomSpecs:      req.CustomSpecs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(view)})
}

// UpdateItemQuantity handles PATCH /api/v1/quote/items/{itemId}
func (h *QuoteHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.service.UpdateItemQuantity(r.Context(), sessionID(r), chi.URLParam(r, "itemId"), *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(view)})
}

// RemoveItem handles DELETE /api/v1/quote/items/{itemId}
func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveItem(r.Context(), sessionID(r), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(view)})
}

// ToggleMaterialCert handles POST /api/v1/quote/items/{itemId}/material-cert
func (h *QuoteHandler) ToggleMaterialCert(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ToggleMaterialCert(r.Context(), sessionID(r), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(view)})
}

// ClearCart handles DELETE /api/v1/quote
func (h *QuoteHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), sessionID(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "cleared"}})
}

// Payload handles GET /api/v1/quote/payload
func (h *QuoteHandler) Payload(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.Payload(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payload})
}

// Preview handles GET /api/v1/quote/preview?product_id=&size=&quantity=
func (h *QuoteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	quantity := 1
	if raw := q.Get("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "quantity must be a positive integer"},
			})
			return
		}
		quantity = n
	}

	input := service.PreviewInput{
		ProductID:    q.Get("product_id"),
		ProductSlug:  q.Get("product_slug"),
		SelectedSize: q.Get("size"),
		Quantity:     quantity,
	}

	preview, product, err := h.service.Preview(r.Context(), sessionID(r), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: toPreviewResponse(preview, product, input.SelectedSize, quantity),
	})
}

// Submit handles POST /api/v1/quote/submit
func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var contact quote.Contact
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	sub, err := h.service.Submit(r.Context(), sessionID(r), contact)
	if err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: toSubmitResponse(sub)})
}

// --- Helpers ---

func sessionID(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}

// decodeBody decodes and validates a JSON body into v. On failure it writes
// the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, v); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
