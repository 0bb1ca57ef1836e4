package handler

import (
	"net/http"
	"time"

	"account-backoffice-go/internal/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler wires the HTTP surface to the application service.
type Handler struct {
	service *api.Service
}

func New(service *api.Service) *Handler {
	return &Handler{service: service}
}

// Router builds the full route tree with middleware applied.
func (h *Handler) Router(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/password-reset/request", h.requestPasswordReset)
			r.Post("/password-reset/confirm", h.confirmPasswordReset)

			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)
				r.Get("/me", h.profile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.listAccounts)
				r.Post("/", h.createAccount)
				r.Get("/stats", h.accountStats)
				r.Get("/{accountID}", h.getAccount)
			})

			r.Get("/trading-accounts", h.listMyTradingAccounts)

			r.Route("/operations", func(r chi.Router) {
				r.Get("/", h.listOperations)
				r.Post("/deposit", h.createDeposit)
				r.Post("/withdrawal", h.createWithdrawal)
				r.Get("/{operationID}", h.getOperation)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Get("/stats", h.adminStats)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.listUsers)
					r.Post("/", h.adminCreateUser)
					r.Get("/{userID}", h.userDetails)
					r.Put("/{userID}", h.updateUser)
					r.Delete("/{userID}", h.deleteUser)
					r.Put("/{userID}/status", h.setUserStatus)
					r.Put("/{userID}/role", h.setUserRole)
					r.Put("/{userID}/password", h.setUserPassword)
				})

				r.Route("/operations", func(r chi.Router) {
					r.Get("/", h.adminListOperations)
					r.Get("/{operationID}", h.adminGetOperation)
					r.Put("/{operationID}/status", h.updateOperationStatus)
					r.Post("/{operationID}/process-deposit", h.processDeposit)
					r.Delete("/{operationID}", h.deleteOperation)
				})

				r.Put("/accounts/{accountID}", h.updateBankingAccount)

				r.Route("/trading-accounts", func(r chi.Router) {
					r.Get("/", h.listTradingAccounts)
					r.Post("/", h.createTradingAccount)
					r.Get("/{accountID}", h.getTradingAccount)
					r.Put("/{accountID}", h.updateTradingAccount)
					r.Put("/{accountID}/status", h.setTradingAccountStatus)
					r.Delete("/{accountID}", h.deleteTradingAccount)
				})

				r.Route("/profits", func(r chi.Router) {
					r.Get("/", h.listProfits)
					r.Post("/", h.createProfit)
					r.Delete("/{profitID}", h.deleteProfit)
				})
			})
		})
	})

	return r
}
