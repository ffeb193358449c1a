package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/analytics"
	api "github.com/mind-engage/mindengage-progress/internal/api/http"
	"github.com/mind-engage/mindengage-progress/internal/attempt"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/jobs"
	"github.com/mind-engage/mindengage-progress/internal/logger"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatal("bad DB_DRIVER", "error", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer dbh.Close()

	// --- Engine ---
	store := course.NewSQLStore(dbh)
	outbox := syncx.NewEventRepo(dbh)
	updater := analytics.NewUpdater(store)
	agg := progress.NewAggregator(store, cfg.Policy)
	mgr := attempt.NewManager(store, updater, agg,
		attempt.WithPolicy(cfg.Policy),
		attempt.WithOutbox(outbox),
		attempt.WithLogger(log.With("component", "attempt")),
	)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	var users *auth.UserStore
	if cfg.EnableLocalAuth {
		users = auth.NewUserStore(dbh)
		if cfg.AdminUser != "" && cfg.AdminPassHash != "" {
			if _, err := users.EnsureUser(ctx, cfg.AdminUser, cfg.AdminPassHash, "admin"); err != nil {
				log.Fatal("seed admin failed", "error", err)
			}
		}
	}

	// --- Reconciler ---
	rec := jobs.NewReconciler(outbox, store, updater, agg, log.With("component", "reconciler"), cfg.ReconcileBatch)
	if cfg.ReconcileInterval > 0 {
		if err := rec.Start(cfg.ReconcileInterval); err != nil {
			log.Fatal("reconciler start failed", "error", err)
		}
		defer rec.Stop()
	}

	// --- Router ---
	h := api.NewRouter(api.Deps{
		Log:         log.With("component", "http"),
		Auth:        authSvc,
		Users:       users,
		RBAC:        rbac.NewChecker(nil),
		Progress:    agg,
		Attempts:    mgr,
		Analytics:   updater,
		CORSOrigins: cfg.CORSOrigins(),
		Ready:       dbh.PingContext,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	log.Info("stopped")
}
