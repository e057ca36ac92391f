// Package httpapi is the HTTP surface of the marketplace core. It does
// request decoding, actor extraction and error mapping; all domain rules
// live in the service layer.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/service"
)

type Handler struct {
	listings     *service.ListingService
	negotiations *service.NegotiationService
	moderation   *service.ModerationService
	metrics      *metrics.Manager
	logger       logger.Logger
}

func NewHandler(
	listings *service.ListingService,
	negotiations *service.NegotiationService,
	moderation *service.ModerationService,
	m *metrics.Manager,
	log logger.Logger,
) *Handler {
	return &Handler{
		listings:     listings,
		negotiations: negotiations,
		moderation:   moderation,
		metrics:      m,
		logger:       log,
	}
}

func NewRouter(h *Handler, jwtSecret string, log logger.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Instrumenter(h.metrics))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticator(jwtSecret, log))

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", h.browseListings)
			r.Post("/", h.createDraft)
			r.Route("/{listingID}", func(r chi.Router) {
				r.Get("/", h.getListing)
				r.Put("/", h.updateDraft)
				r.Post("/media", h.attachMedia)
				r.Post("/submit", h.submitListing)
				r.Post("/withdraw", h.withdrawListing)
				r.Post("/expire", h.expireListing)
				r.Post("/contact", h.proposeContact)
			})
		})

		r.Route("/my", func(r chi.Router) {
			r.Get("/listings", h.listOwnListings)
			r.Get("/negotiations", h.listMyNegotiations)
			r.Get("/negotiations/pending", h.listPendingNegotiations)
		})

		r.Route("/negotiations/{negotiationID}", func(r chi.Router) {
			r.Post("/accept", h.acceptNegotiation)
			r.Post("/reject", h.rejectNegotiation)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/listings/pending", h.listPendingListings)
			r.Post("/listings/{listingID}/approve", h.approveListing)
			r.Post("/listings/{listingID}/reject", h.rejectListing)
			r.Get("/stats", h.adminStats)
			r.Get("/audit", h.auditLog)
		})
	})

	return r
}
