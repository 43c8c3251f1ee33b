package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/partsquote/internal/search"
	"github.com/utafrali/partsquote/internal/service"
	"github.com/utafrali/partsquote/pkg/health"
	"github.com/utafrali/partsquote/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	CORS          middleware.CORSConfig
	SubmitLimiter *middleware.RateLimiter
	Timeout       time.Duration
}

// NewRouter creates a chi router with all quote service routes registered.
func NewRouter(
	cartService *service.CartService,
	searchService *search.Service,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.Timeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("quote"))
	r.Use(middleware.Tracing("quote"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	quoteHandler := NewQuoteHandler(cartService, logger)
	searchHandler := NewSearchHandler(searchService, logger)

	r.Route("/api/v1/quote", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.RequireSession)
		r.Use(ContentTypeJSON)

		r.Get("/", quoteHandler.GetCart)
		r.Delete("/", quoteHandler.ClearCart)
		r.Get("/payload", quoteHandler.Payload)
		r.Get("/preview", quoteHandler.Preview)

		r.Post("/items", quoteHandler.AddItem)
		r.Patch("/items/{itemId}", quoteHandler.UpdateItemQuantity)
		r.Delete("/items/{itemId}", quoteHandler.RemoveItem)
		r.Post("/items/{itemId}/material-cert", quoteHandler.ToggleMaterialCert)

		r.Group(func(r chi.Router) {
			if cfg.SubmitLimiter != nil {
				r.Use(middleware.RateLimit(cfg.SubmitLimiter, logger))
			}
			r.Post("/submit", quoteHandler.Submit)
		})
	})

	r.Get("/api/v1/search", searchHandler.Search)

	return r
}
