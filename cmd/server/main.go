// Command server runs the access-controlled transaction core as an HTTP
// service.
//
// Startup order:
//  1. Load .env (best effort) and environment configuration
//  2. Configure structured logging (zerolog)
//  3. Open SQLite, migrate the schema, seed the bootstrap admin
//  4. Set up OpenTelemetry tracing (no-op unless enabled)
//  5. Mount the Gin router and serve until SIGINT/SIGTERM
//
// Shutdown drains in-flight HTTP requests and then closes the trace
// exporter. Notification delivery is best effort and needs no drain.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vlockster/vlockster-backend/internal/config"
	httpapi "github.com/vlockster/vlockster-backend/internal/http"
	"github.com/vlockster/vlockster-backend/internal/observability"
	"github.com/vlockster/vlockster-backend/internal/repo"
	"github.com/vlockster/vlockster-backend/internal/services"
	"github.com/vlockster/vlockster-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	// Seed an admin on first boot so the role table is never empty.
	identSvc := services.NewIdentityService(db,
		services.NewGuard(db, services.DefaultRules()),
		services.NewNotifier(db))
	identSvc.SessionTTL = cfg.SessionTTL
	if created, err := identSvc.EnsureBootstrapAdmin(context.Background(), cfg.BootstrapAdminEmail); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin")
	} else if created != nil {
		log.Info().Str("identity_id", created.ID).Msg("bootstrap admin created")
	}

	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("server stopped")
}
