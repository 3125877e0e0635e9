package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trivia-party/internal/answer"
	"trivia-party/internal/dbconfig"
	"trivia-party/internal/orchestrator"
	"trivia-party/internal/outbox"
	"trivia-party/internal/question"
	"trivia-party/internal/roster"
	"trivia-party/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	natsURL := getEnv("NATS_URL", nats.DefaultURL)
	streamName := getEnv("NATS_STREAM", "TRIVIA_EVENTS")
	subjectPrefix := getEnv("NATS_SUBJECT_PREFIX", "trivia.events")
	batchSize := int32(100)

	dbCfg := dbconfig.NewConfigFromEnv()

	db, err := dbCfg.Open()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", natsURL).
		Msg("starting session orchestrator")

	clock := clockwork.NewRealClock()
	logger := log.Logger

	sessionRepo := session.NewRepository(db)
	rosterRepo := roster.NewRepository(db)
	questionRepo := question.NewRepository(db)
	answerRepo := answer.NewRepository(db)
	outboxApp := outbox.NewApp(outbox.NewRepository(db))

	sessionApp := session.NewApp(sessionRepo, rosterRepo, questionRepo, answerRepo, outboxApp, clock, logger)

	orch := orchestrator.NewOrchestrator(sessionRepo, sessionApp, batchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Info().Msg("starting orchestrator scheduler")
		if err := orch.RunScheduler(ctx); err != nil {
			log.Error().Err(err).Msg("orchestrator scheduler failed")
		}
	}()

	eventConsumer, err := orchestrator.SetupEventConsumer(natsURL, streamName, subjectPrefix, orch)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup event consumer")
	}
	defer eventConsumer.Close()

	go func() {
		log.Info().Msg("starting NATS event consumer")
		if err := eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("NATS event consumer failed")
		}
	}()

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         getEnv("ORCHESTRATOR_ADDR", ":8082"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	cancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("session orchestrator shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
