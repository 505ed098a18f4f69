package main

import (
	"context"
	"database/sql"
	"errors"
	"event-location-service/internal/adapters/cache"
	"event-location-service/internal/adapters/geocode"
	"event-location-service/internal/api"
	"event-location-service/internal/config"
	"event-location-service/internal/picker"
	"event-location-service/internal/platform/db"
	"event-location-service/internal/platform/metrics"
	"event-location-service/internal/platform/obs"
	"event-location-service/internal/ports"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (search provider, cache, map surfaces) behind
// ports and starts the HTTP server.
func main() {
	foundEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.Init(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if !foundEnv {
		logger.Info("No .env file found (using environment variables)")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := cache.InitSchema(ctx, conn, dialect); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if cfg.SearchCacheMaxAge > 0 {
		n, err := cache.Purge(ctx, conn, dialect, time.Now().Add(-cfg.SearchCacheMaxAge))
		if err != nil {
			logger.Warn("search cache purge failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("stale searches purged", zap.Int64("count", n))
		}
	}

	provider, err := newSearchProvider(cfg, conn, dialect)
	if err != nil {
		return err
	}

	m := metrics.New()
	manager, err := picker.NewManager(picker.Config{
		SearchProvider: provider,
		Fallback:       cfg.Fallback,
		Zoom:           cfg.MapZoom,
		TTL:            cfg.SessionTTL,
		Metrics:        m,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	go manager.Run(ctx, cfg.ReapInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(manager, m),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			zap.String("addr", srv.Addr),
			zap.String("search_provider", cfg.SearchProvider),
			zap.String("cache", string(dialect)),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openCache uses Postgres when DATABASE_URL is set, otherwise SQLite.
func openCache(cfg config.Config) (*sql.DB, cache.Dialect, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, cache.DialectPostgres, err
	}
	conn, err := db.OpenSQLite(cfg.DBPath)
	return conn, cache.DialectSQLite, err
}

func newSearchProvider(cfg config.Config, conn *sql.DB, dialect cache.Dialect) (ports.SearchProvider, error) {
	var upstream ports.SearchProvider
	switch cfg.SearchProvider {
	case config.SearchORS:
		p, err := geocode.NewORSProvider(cfg.ORSKey, cfg.ORSURL, cfg.SearchCountry, cfg.SearchLimit)
		if err != nil {
			return nil, err
		}
		upstream = p
	default:
		p, err := geocode.NewNominatimProvider(cfg.NominatimURL, cfg.NominatimAgent, cfg.SearchLimit)
		if err != nil {
			return nil, err
		}
		upstream = p
	}

	var store ports.SearchCache
	if dialect == cache.DialectPostgres {
		c := cache.NewSQLSearchCache(conn)
		c.MaxAge = cfg.SearchCacheMaxAge
		store = c
	} else {
		c := cache.NewSqliteSearchCache(conn)
		c.MaxAge = cfg.SearchCacheMaxAge
		store = c
	}

	return geocode.NewCachedProvider(upstream, store), nil
}
