package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"trivia-party/internal/dbconfig"
	"trivia-party/internal/outbox"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Warn("could not load .env file", slog.String("error", err.Error()))
	}

	natsURL := getEnv("NATS_URL", nats.DefaultURL)
	streamName := getEnv("NATS_STREAM", "TRIVIA_EVENTS")
	subjectPrefix := getEnv("NATS_SUBJECT_PREFIX", "trivia.events")

	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := dbCfg.Open()
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	nc, err := nats.Connect(natsURL,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", slog.String("error", errString(err)))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		logger.Error("failed to connect to nats", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		logger.Error("failed to create jetstream context", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The relay owns the stream; consumers only bind durables to it.
	if err := outbox.EnsureStream(ctx, js, streamName, subjectPrefix); err != nil {
		logger.Error("failed to ensure stream", slog.String("error", err.Error()))
		os.Exit(1)
	}

	publisher := outbox.NewNATSPublisher(js, subjectPrefix, logger)
	worker := outbox.NewWorker(db, publisher, outbox.DefaultConfig(), logger)

	if err := worker.Start(ctx); err != nil {
		logger.Error("failed to start outbox worker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("outbox relay started",
		slog.String("nats_url", natsURL),
		slog.String("stream", streamName),
		slog.String("database", dbCfg.Database))

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         getEnv("RELAY_ADDR", ":8083"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health check server failed", slog.String("error", err.Error()))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("received shutdown signal", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("health check server shutdown failed", slog.String("error", err.Error()))
	}

	cancel()
	if err := worker.Stop(); err != nil {
		logger.Error("outbox worker shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("outbox relay shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
