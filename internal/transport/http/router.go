package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditbridge/internal/platform/middleware"
)

// NewRouter wires the operational endpoints. Health and metrics are public;
// everything else requires an operator bearer token.
func NewRouter(h *Handler, validator middleware.TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Get("/balances", h.handleUnifiedBalance)
		r.Get("/state", h.handleSnapshot)
		r.Post("/refresh", h.handleRefresh)

		r.Post("/wallets", h.handleRegisterWallet)
		r.Get("/wallets/{walletID}", h.handleGetWallet)

		r.Post("/identities", h.handleCreateIdentity)
		r.Post("/transfers", h.handleTransfer)
		r.Post("/withdrawals", h.handleWithdraw)

		r.Get("/locks/unconsumed", h.handleUnconsumedLocks)
		r.Post("/locks/{lockID}/recover", h.handleRecoverLock)
	})

	return r
}
