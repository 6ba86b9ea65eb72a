// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/game"
	"telegram-trivia-bot/internal/handler"
	"telegram-trivia-bot/internal/pkg/lock"
	"telegram-trivia-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	engine *game.Engine

	quizHandler *handler.QuizHandler
}

// Dependencies holds everything the bot needs besides the transport
// itself. The engine is built here because its presenter needs the
// telebot instance.
type Dependencies struct {
	Config        *config.Config
	QuizService   *service.QuizService
	ResultService *service.ResultService
	ChatLock      *lock.ChatLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	presenter := handler.NewTelegramPresenter(teleBot)
	engine := game.New(
		game.NewRegistry(),
		presenter,
		deps.QuizService,
		deps.ResultService,
		game.Settings{
			SoloRegistration:  deps.Config.Quiz.SoloRegistration,
			OpenRegistration:  deps.Config.Quiz.OpenRegistration,
			TeamRegistration:  deps.Config.Quiz.TeamRegistration,
			QuestionCount:     deps.Config.Quiz.QuestionCount,
			TimePerAnswer:     deps.Config.Quiz.TimePerAnswer,
			NextQuestionDelay: deps.Config.Quiz.NextQuestionDelay,
		},
	)

	b := &Bot{
		bot:    teleBot,
		cfg:    deps.Config,
		engine: engine,
	}

	b.quizHandler = handler.NewQuizHandler(deps.Config, engine, deps.ResultService, deps.ChatLock)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/quiz", b.quizHandler.HandleQuiz)
	b.bot.Handle("/game", b.quizHandler.HandleStatus)
	b.bot.Handle("/team", b.quizHandler.HandleTeam)
	b.bot.Handle("/answer", b.quizHandler.HandleAnswerCommand)
	b.bot.Handle("/end_game", b.quizHandler.HandleEndGame)
	b.bot.Handle("/top", b.quizHandler.HandleTop)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/quiz_abort", b.quizHandler.HandleAbort)

	// Generic callback handler for all inline buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)

	// Plain text messages double as open-text answers
	b.bot.Handle(tele.OnText, b.quizHandler.HandleText)
}

// handleCallback routes callbacks by payload prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	switch {
	case strings.HasPrefix(data, "game:"):
		return b.quizHandler.HandleModeCallback(c)
	case data == game.CallbackJoin:
		return b.quizHandler.HandleJoinCallback(c)
	case data == game.CallbackStartNow:
		return b.quizHandler.HandleStartNowCallback(c)
	case data == game.CallbackFinish:
		return b.quizHandler.HandleFinishCallback(c)
	case strings.HasPrefix(data, "reg:team:"):
		return b.quizHandler.HandleJoinTeamCallback(c)
	case strings.HasPrefix(data, "ans:"):
		return b.quizHandler.HandleAnswerCallback(c)
	case strings.HasPrefix(data, "next:"):
		return b.quizHandler.HandleNextCallback(c)
	default:
		return c.Respond(&tele.CallbackResponse{})
	}
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully, finalizing any sessions still in flight
// so their results reach the ledger before the poller goes down.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, chatID := range b.engine.Sessions().ChatIDs() {
		b.engine.ForceClose(ctx, chatID)
	}

	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}

// Engine returns the session engine, mainly for shutdown draining.
func (b *Bot) Engine() *game.Engine {
	return b.engine
}
