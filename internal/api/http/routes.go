package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/logger"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

type Deps struct {
	Log         *logger.Logger
	Auth        *auth.AuthService
	Users       *auth.UserStore // nil disables /auth/login and /users/*
	RBAC        *rbac.Checker
	Progress    ProgressService
	Attempts    AttemptService
	Analytics   AnalyticsService
	CORSOrigins []string
	Ready       func(ctx context.Context) error // nil means always ready
}

// NewRouter wires the public HTTP surface.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.RBAC == nil {
		d.RBAC = rbac.NewChecker(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if d.Users != nil {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users, d.Log.With("component", "login")))
	}

	// Guests may start and submit attempts on free items.
	r.Group(func(gr chi.Router) {
		gr.Use(auth.OptionalJWT(d.Auth))
		gr.Post("/quizzes/{quizID}/attempts", StartAttemptHandler(d.Attempts, d.Log))
		gr.Get("/quizzes/{quizID}/start-info", StartInfoHandler(d.Attempts, d.Log))
		gr.Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Attempts, d.Log))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(d.RBAC.Require(rbac.PermProgressView)).
			Get("/progress", GetProgressHandler(d.Progress, d.Log))
		pr.With(d.RBAC.Require(rbac.PermProgressWrite)).
			Post("/progress", PostProgressHandler(d.Progress, d.Log))
		pr.With(d.RBAC.Require(rbac.PermAttemptOwn)).
			Get("/quizzes/{quizID}/attempts", ListMyAttemptsHandler(d.Attempts, d.Log))
		pr.With(d.RBAC.Require(rbac.PermQuizAnalytics)).
			Post("/quizzes/{quizID}/analytics/recompute", RecomputeAnalyticsHandler(d.Analytics, d.Log))

		if d.Users != nil {
			ul := d.Log.With("component", "users")
			pr.With(d.RBAC.Require(rbac.PermChangePass)).
				Post("/users/change-password", auth.ChangePasswordHandler(d.Users, ul))
			pr.With(d.RBAC.Require(rbac.PermUsersBulk)).
				Post("/users/bulk", auth.BulkUpsertUsersHandler(d.Users, ul))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				d.Log.Warn("not ready", "error", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
