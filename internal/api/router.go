package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 60 * time.Second

// NewRouter sets up the HTTP API.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/api/networks", handler.ListNetworks)

	r.Route("/api/deposits", func(r chi.Router) {
		r.Post("/", handler.CreateDepositAddress)
		r.Post("/sweep", handler.SweepExpired)
		r.Get("/{addressID}", handler.GetDepositAddress)
		r.Post("/{addressID}/cancel", handler.CancelDepositAddress)
		r.Post("/{addressID}/verify", handler.VerifyDeposit)
	})

	r.Route("/api/withdrawals", func(r chi.Router) {
		r.Post("/", handler.RequestWithdrawal)
		r.Post("/{transactionID}/process", handler.ProcessWithdrawal)
	})

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/balance", handler.GetUserBalance)
		r.Get("/transactions", handler.GetTransactionHistory)
	})

	return r
}
