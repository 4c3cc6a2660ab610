package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/runner-warden/internal/callback"
	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(
	cfg *config.Config,
	provisioner core.Provisioner,
	g *gate.Gate,
	signer *callback.Signer,
	notifier core.CompletionNotifier,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg, provisioner, logger)
		r.Post("/webhook/github", webhookHandler.Handle)

		unitsHandler := handler.NewUnitsHandler(cfg, g, signer, notifier, logger)
		r.Get("/units", unitsHandler.List)
		r.Post("/jobs/{jobID}/complete", unitsHandler.Complete)
	})

	return r
}
