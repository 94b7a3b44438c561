// Package api is the HTTP surface of the discount service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/usecase"
)

// Renewer runs one renewal pass on demand. The scheduler's worker satisfies it.
type Renewer interface {
	RunOnce(ctx context.Context) (*model.RenewalReport, error)
}

type Deps struct {
	Redemptions usecase.RedemptionUseCase
	Plans       usecase.PlanUseCase
	Family      usecase.FamilyUseCase
	Renewals    Renewer
	Auth        *Authenticator

	// optional
	Limiter       Limiter
	CodeRateLimit int
	Ready         func(ctx context.Context) error
	RedeemTimeout time.Duration
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "api").Logger()
	if d.RedeemTimeout <= 0 {
		d.RedeemTimeout = 10 * time.Second
	}
	return &Server{d: d, log: &l}
}

// Router builds the chi router with every route and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.d.Auth.Authenticate())

		r.With(RequireRole(RoleProvider), RateLimit(s.d.Limiter, "redeem", s.d.CodeRateLimit, s.log), Timeout(s.d.RedeemTimeout)).
			Post("/redemptions", s.redeem)
		r.With(RequireRole(RoleProvider, RoleAdmin)).
			Get("/redemptions/{verificationCode}", s.lookup)
		r.With(RequireRole(RoleProvider), RateLimit(s.d.Limiter, "preview", s.d.CodeRateLimit, s.log)).
			Post("/codes/preview", s.preview)

		r.Route("/me", func(r chi.Router) {
			r.Use(RequireRole(RoleSubscriber))
			r.Get("/redemptions", s.history)
			r.Get("/plan", s.getPlan)
			r.Post("/plan/upgrade", s.upgrade)
			r.Get("/family", s.members)
			r.Post("/family/invitations", s.invite)
		})
		r.With(RequireRole(RoleSubscriber)).
			Post("/family/invitations/{token}/accept", s.accept)

		r.With(RequireRole(RoleAdmin)).
			Post("/admin/renewals", s.renew)
	})
	return r
}

// NewHTTPServer wraps h with the configured timeouts.
func NewHTTPServer(addr string, h http.Handler, read, write time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.d.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.d.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
