package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/subcommands"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/stockquest/internal/config"
	"github.com/atmx/stockquest/internal/metrics"
	"github.com/atmx/stockquest/internal/scheduler"
	"github.com/atmx/stockquest/internal/session"
	"github.com/atmx/stockquest/internal/store"
	"github.com/atmx/stockquest/internal/trade"
)

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the simulator HTTP and WebSocket server" }
func (*serveCmd) Usage() string {
	return `serve

  Starts one session and serves it over HTTP on $PORT. Prices tick every
  $TICK_INTERVAL. Executed trades are journaled to PostgreSQL when
  $DATABASE_URL is set (cached in Redis when $REDIS_URL is set too),
  otherwise in memory.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (*serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := serve(ctx, cfg); err != nil {
		slog.Error("stockquest failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func serve(ctx context.Context, cfg *config.Config) error {
	// --- Initialize journal ---
	journal, cleanup, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Session ---
	sess, err := session.New(session.Config{
		InitialCapital: cfg.InitialCapital,
		Seed:           cfg.PriceSeed,
		BuyXP:          cfg.BuyXP,
		SellXP:         cfg.SellXP,
	}, session.WithJournal(journal))
	if err != nil {
		return err
	}
	slog.Info("session started",
		"session", sess.ID(),
		"initial_capital", cfg.InitialCapital.String(),
		"seed", cfg.PriceSeed,
	)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run()
	defer wsHub.Close()

	// --- Trade service + tick ---
	tradeSvc := trade.NewService(sess, journal, wsHub)
	ticker, err := scheduler.New(cfg.TickInterval, tradeSvc.Tick)
	if err != nil {
		return err
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"stockquest"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", tradeSvc.Routes)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("stockquest listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	ticker.Start()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		ticker.Stop(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down stockquest...")
	if err := ticker.Stop(shutdownCtx); err != nil {
		slog.Error("scheduler stop error", "err", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	return nil
}

func openJournal(ctx context.Context, cfg *config.Config) (store.Journal, []func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory journal (data will not persist)")
		return store.NewMemoryStore(), nil, nil
	}

	var cleanup []func()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	cleanup = append(cleanup, pool.Close)

	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("journal schema: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	var journal store.Journal = pg
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		journal = store.NewCachedStore(journal, rdb, cfg.CacheTTL)
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
	}
	return journal, cleanup, nil
}
