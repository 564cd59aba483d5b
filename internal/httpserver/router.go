package httpserver

import (
	"net/http"

	"clearhaven/internal/auth"
	"clearhaven/internal/bankaccounts"
	"clearhaven/internal/closure"
	"clearhaven/internal/health"
	"clearhaven/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler    *auth.Handler
	ClosureHandler *closure.Handler
	BankHandler    *bankaccounts.Handler
	HealthHandler  *health.Handler
	AuthService    *auth.Service
	InternalToken  string
	ProgressWS     http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Internal-Token")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		if d.ProgressWS != nil {
			r.Get("/account-closure/ws", d.ProgressWS.ServeHTTP)
		}
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.AuthHandler.Me(w, r, userID)
			})
			r.Get("/bank-relationships", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.BankHandler.List(w, r, userID)
			})
			r.Post("/bank-relationships", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.BankHandler.Link(w, r, userID)
			})
			r.Get("/account-closure", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.Status(w, r, userID)
			})
			r.Get("/account-closure/check-readiness/{accountID}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.CheckReadiness(w, r, userID, chi.URLParam(r, "accountID"))
			})
			r.Post("/account-closure/initiate/{accountID}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.Initiate(w, r, userID, chi.URLParam(r, "accountID"))
			})
			r.Post("/account-closure/liquidate-positions/{accountID}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.Liquidate(w, r, userID, chi.URLParam(r, "accountID"))
			})
			r.Post("/account-closure/resume/{accountID}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.Resume(w, r, userID, chi.URLParam(r, "accountID"))
			})
			r.Post("/account-closure/close-account/{accountID}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.Close(w, r, userID, chi.URLParam(r, "accountID"))
			})
			r.Get("/account-closure/progress/{accountID}", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.Progress(w, r, userID, chi.URLParam(r, "accountID"))
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Use(InternalAuth(d.InternalToken))
			r.Post("/account-closure/update-status", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.ClosureHandler.UpdateStatus(w, r, userID)
			})
		})
	})
	return r
}
