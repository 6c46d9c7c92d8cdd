package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/nexpay/bchfacilitator/internal/api/handlers"
	"github.com/nexpay/bchfacilitator/internal/api/middleware"
	"github.com/nexpay/bchfacilitator/internal/config"
	"github.com/nexpay/bchfacilitator/internal/settle"
	"github.com/nexpay/bchfacilitator/internal/verify"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter builds the chi router serving the facilitator's three external
// operations plus a health check.
func NewRouter(cfg *config.Config, verifyPipeline *verify.Pipeline, settlePipeline *settle.Pipeline) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging", "bearerAuth"},
		"bearerAuthEnabled", cfg.BearerToken != "",
	)

	r.Get("/health", handlers.Health(cfg, Version))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.BearerToken))
		r.Get("/supported", handlers.ListSupportedKinds)
		r.Post("/verify", handlers.VerifyPayment(verifyPipeline))
		r.Post("/settle", handlers.SettlePayment(settlePipeline))
	})

	return r
}
