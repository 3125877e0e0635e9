package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-party/internal/answer"
	"trivia-party/internal/audio"
	"trivia-party/internal/outbox"
	"trivia-party/internal/question"
	"trivia-party/internal/roster"
	"trivia-party/internal/session"
)

type Services struct {
	Session  *session.Service
	Roster   *roster.Service
	Question *question.Service
	Answer   *answer.Service
	Audio    *audio.Service
	Sweeper  *audio.Sweeper
}

func setupServices(database *sql.DB, config *Config, logger zerolog.Logger) *Services {
	// Database layer -> Repository layer -> App layer -> Service layer
	clock := clockwork.NewRealClock()

	sessionRepo := session.NewRepository(database)
	rosterRepo := roster.NewRepository(database)
	questionRepo := question.NewRepository(database)
	answerRepo := answer.NewRepository(database)
	audioRepo := audio.NewRepository(database)
	outboxApp := outbox.NewApp(outbox.NewRepository(database))

	sessionApp := session.NewApp(sessionRepo, rosterRepo, questionRepo, answerRepo, outboxApp, clock, logger).
		WithDefaultSettings(config.defaultGameSettings())
	sessionService := session.NewService(sessionApp)

	rosterApp := roster.NewApp(rosterRepo, sessionRepo, answerRepo, questionRepo, outboxApp, clock, logger)
	rosterService := roster.NewService(rosterApp)

	questionApp := question.NewApp(questionRepo, sessionRepo, logger)
	questionService := question.NewService(questionApp)

	oracle := question.NewOracle(questionRepo)
	answerApp := answer.NewApp(answerRepo, sessionRepo, questionRepo, rosterRepo, oracle, outboxApp, clock, logger)
	answerService := answer.NewService(answerApp)

	audioApp := audio.NewApp(audioRepo, sessionRepo, questionRepo, logger)
	audioService := audio.NewService(audioApp)

	apiKeys := audio.ParseAPIKeys(getEnv("TTS_API_KEYS", ""))
	sweeper := audio.NewSweeper(
		audioRepo,
		questionRepo,
		audio.NewReadinessStorage(questionRepo),
		audio.NewGoogleTTSClient(),
		apiKeys,
		config.sweeperConfig(),
		logger,
	)

	return &Services{
		Session:  sessionService,
		Roster:   rosterService,
		Question: questionService,
		Answer:   answerService,
		Audio:    audioService,
		Sweeper:  sweeper,
	}
}
