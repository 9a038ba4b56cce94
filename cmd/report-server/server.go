package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ehr/healthreport/internal/config"
	"github.com/ehr/healthreport/internal/domain/healthreport"
	"github.com/ehr/healthreport/internal/platform/auth"
	"github.com/ehr/healthreport/internal/platform/db"
	"github.com/ehr/healthreport/internal/platform/docstore"
	"github.com/ehr/healthreport/internal/platform/metrics"
	"github.com/ehr/healthreport/internal/platform/middleware"
	"github.com/ehr/healthreport/migrations"
)

var version = "0.1.0"

// deps are the collaborators the HTTP server routes to. Pool is nil when no
// database is configured.
type deps struct {
	Service *healthreport.Service
	Store   *docstore.MemoryStore
	Metrics *metrics.Metrics
	Pool    *pgxpool.Pool
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		pool *pgxpool.Pool
		repo healthreport.Repository
	)
	if cfg.HasDatabase() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		repo = healthreport.NewRepoPG(pool)
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set; only posted snapshots can be rendered")
	}

	m := metrics.New(prometheus.NewRegistry())
	store := docstore.NewMemoryStore(cfg.MaxDocumentBytes, cfg.ArchiveMaxDocuments)
	svc := healthreport.NewService(repo, healthreport.Config{
		Report:  reportOptions(cfg),
		Creator: creator,
		Store:   store,
		Metrics: m,
		Logger:  logger,
	})

	e := newServer(cfg, logger, deps{Service: svc, Store: store, Metrics: m, Pool: pool})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting report server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return e.Shutdown(shutdownCtx)
}

func newServer(cfg *config.Config, logger zerolog.Logger, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(d.Metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "If-None-Match"},
		ExposeHeaders: []string{healthreport.HeaderDocumentID, healthreport.HeaderPageCount, echo.HeaderContentDisposition, "ETag"},
	}))

	if cfg.IsDev() {
		logger.Warn().Msg("using development auth; requests without a token act as admin")
		e.Use(auth.DevAuthMiddleware([]byte(cfg.JWTSigningKey)))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.JWTSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if d.Pool != nil {
		e.GET("/health/db", db.HealthHandler(d.Pool, db.NewMigrator(d.Pool, migrations.FS)))
	}
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	api := e.Group("/api/v1")
	healthreport.NewHandler(d.Service).RegisterRoutes(api)

	documents := docstore.NewHandler(d.Store)
	documents.OnDelete(func() {
		d.Metrics.ArchivedDocuments.Set(float64(d.Store.Len()))
	})
	documents.RegisterRoutes(api.Group("", auth.RequireRole(auth.RoleClinician)))

	return e
}
