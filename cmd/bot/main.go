// Package main is the entry point for the Telegram trivia bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/bot"
	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/pkg/db"
	"telegram-trivia-bot/internal/pkg/lock"
	"telegram-trivia-bot/internal/repository"
	"telegram-trivia-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	migrateCtx, migrateCancel := db.WithTimeout(ctx, 30*time.Second)
	defer migrateCancel()
	if err := runMigrations(migrateCtx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	questionRepo := repository.NewQuestionRepository(dbPool.Pool)
	resultRepo := repository.NewResultRepository(dbPool.Pool)

	// Initialize services
	quizService := service.NewQuizService(questionRepo)
	resultService := service.NewResultService(resultRepo)

	// Per-chat lock serializing session open/teardown
	chatLock := lock.NewChatLock()

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:        cfg,
		QuizService:   quizService,
		ResultService: resultService,
		ChatLock:      chatLock,
	}

	// Initialize bot
	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create quizzes table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS quizzes (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			quiz_type VARCHAR(20) NOT NULL,
			amount_questions INT NOT NULL DEFAULT 0,
			time_to_answer INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_quizzes_type ON quizzes(quiz_type);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: quizzes table created")

	// Migration 2: Create questions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			id BIGSERIAL PRIMARY KEY,
			text TEXT NOT NULL,
			question_type VARCHAR(20) NOT NULL,
			comment TEXT,
			image_url TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_questions_status ON questions(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: questions table created")

	// Migration 3: Create question_answers table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS question_answers (
			id BIGSERIAL PRIMARY KEY,
			question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			is_correct BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_question_answers_question ON question_answers(question_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: question_answers table created")

	// Migration 4: Create game_results table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_results (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			points INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_results_chat ON game_results(chat_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_game_results_name ON game_results(name);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: game_results table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
