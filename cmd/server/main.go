package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"chronicle/internal/platform/config"
	"chronicle/internal/platform/httpserver"
	"chronicle/internal/platform/logger"
	platformredis "chronicle/internal/platform/redis"
	httptransport "chronicle/internal/transport/http"
	"chronicle/pkg/audit"
	memorystore "chronicle/pkg/audit/store/memory"
	postgresstore "chronicle/pkg/audit/store/postgres"
	redisstore "chronicle/pkg/audit/store/redis"
	"chronicle/pkg/platform/middleware"
)

// main wires the audit trail query service: pick a store backend from config,
// expose the record and snapshot endpoints, and keep the server lifecycle
// small. The recording side (Auditor) runs inside host processes that import
// pkg/audit directly.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("open audit store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	history := audit.NewHistory(store)
	handler := httptransport.NewHandler(history, log)
	router := httptransport.NewRouter(handler, middleware.NewHMACVerifier([]byte(cfg.JWTSigningKey)))

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting chronicle", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore selects the backend from configuration: postgres when
// DATABASE_URL is set, redis when REDIS_URL is set, in-memory otherwise.
func openStore(ctx context.Context, cfg config.Server) (audit.Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgresstore.New(db), func() { db.Close() }, nil
	case cfg.RedisURL != "":
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client), func() { client.Close() }, nil
	default:
		return memorystore.NewInMemoryStore(), func() {}, nil
	}
}
