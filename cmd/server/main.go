package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/aws/dcv-access-console-sub000/internal/app"
	"github.com/aws/dcv-access-console-sub000/internal/config"
	"github.com/aws/dcv-access-console-sub000/internal/directory"
	"github.com/aws/dcv-access-console-sub000/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	writeDB, readDB, err := directory.Open(cfg.DirectoryDBPath)
	if err != nil {
		return err
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := directory.RunMigrations(writeDB); err != nil {
		return err
	}

	application, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// Build the first graph before serving; decisions against an empty graph
	// would deny everything.
	if err := application.Engine.LoadEntities(ctx); err != nil {
		return err
	}

	if cfg.ReloadSchedule != "" {
		if err := application.Scheduler.Start(cfg.ReloadSchedule); err != nil {
			return err
		}
		defer application.Scheduler.Stop()
		logger.Info("periodic reload enabled", "schedule", cfg.ReloadSchedule)
	}

	validator, err := newValidator(ctx, cfg)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(validator, cfg.Auth.NameClaim))
		// After auth so the limiter buckets by principal, not by address.
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
		r.Mount("/", application.Handler.Routes())
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if cfg.TLSCertFile != "" {
		scheme = "https"
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr,
			"health", scheme+"://"+curlHostForListenAddr(cfg.ListenAddr)+"/health")
		var err error
		if cfg.TLSCertFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// curlHostForListenAddr rewrites a listen address into a host suitable for a
// copy-pasteable URL. Wildcard and empty hosts bind everywhere but are not
// dialable, so they become localhost; anything unparseable passes through.
func curlHostForListenAddr(listenAddr string) string {
	listenAddr = strings.TrimSpace(listenAddr)
	if listenAddr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return listenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// newValidator picks the token validator: OIDC discovery when an issuer is
// configured, otherwise the shared-secret validator for local setups. The
// result is wrapped in the verified-token cache when a TTL is configured.
func newValidator(ctx context.Context, cfg *config.Config) (middleware.TokenValidator, error) {
	var (
		v   middleware.TokenValidator
		err error
	)
	if cfg.Auth.OIDCEnabled() {
		v, err = middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	} else {
		v, err = middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Auth.TokenCacheTTL > 0 {
		v = middleware.NewCachingValidator(v, cfg.Auth.TokenCacheTTL)
	}
	return v, nil
}
