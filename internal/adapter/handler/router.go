package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"btcinvest/internal/domain/port"
)

type RouterDeps struct {
	Price    *PriceHandler
	Accounts *AccountHandler
	Mode     *ModeHandler
	Health   *HealthHandler
	Verifier port.TokenVerifier

	// Instrument and Metrics are optional.
	Instrument func(http.Handler) http.Handler
	Metrics    http.Handler

	Logger *slog.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Instrument != nil {
		r.Use(d.Instrument)
	}

	r.Post("/account", d.Accounts.SignUp)
	r.Post("/login", d.Accounts.SignIn)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(d.Verifier, d.Logger))
		r.Post("/account/deposit", d.Accounts.Deposit)
		r.Get("/account/balance", d.Accounts.Balance)
		r.Get("/btc/price", d.Price.GetCurrentPrice)
	})

	r.Post("/mode/test", d.Mode.SwitchToTest)
	r.Post("/mode/live", d.Mode.SwitchToLive)
	r.Get("/health", d.Health.Check)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
