// Command vezor-server runs the Vezor dev server: a local, single-binary
// stand-in for the hosted API. Configuration comes from the environment:
//
//	VEZOR_SERVER_ADDR    listen address, default ":8080"
//	VEZOR_STORE          "memory" (default) or "bolt"
//	VEZOR_BOLT_PATH      bolt database file, default "vezor.db"
//	VEZOR_JWT_SECRET     session signing secret (dev default when unset)
//	VEZOR_SESSION_HOURS  session lifetime, default 24
//	VEZOR_DEBUG          any value enables debug logging
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vezor/vezor-go/server"
	"github.com/vezor/vezor-go/server/stores"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("VEZOR_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var st stores.Store
	switch storeType := os.Getenv("VEZOR_STORE"); storeType {
	case "", "memory":
		st = stores.NewMemoryStore()
		logger.Info("using in-memory store")
	case "bolt":
		path := os.Getenv("VEZOR_BOLT_PATH")
		if path == "" {
			path = "vezor.db"
		}
		boltStore, err := stores.NewBoltStore(path)
		if err != nil {
			return fmt.Errorf("failed to open bolt store: %w", err)
		}
		defer boltStore.Close()
		st = boltStore
		logger.Info("using bolt store", "path", path)
	default:
		return fmt.Errorf("unknown VEZOR_STORE %q, want memory or bolt", storeType)
	}

	srv, err := server.New(server.Config{
		Store:        st,
		Logger:       logger,
		JWTSecret:    os.Getenv("VEZOR_JWT_SECRET"),
		SessionHours: envInt("VEZOR_SESSION_HOURS"),
	})
	if err != nil {
		return err
	}

	addr := os.Getenv("VEZOR_SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	httpServer := srv.HTTPServer(addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("vezor dev server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func envInt(name string) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return n
}
