package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/game"
	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/pkg/lock"
	"telegram-trivia-bot/internal/service"
)

// Mode-selection callback payloads sent by the /quiz menu.
const (
	callbackModeSolo = "game:solo"
	callbackModeFree = "game:dm"
	callbackModeTeam = "game:team"
)

// QuizHandler handles quiz commands and inline button callbacks.
type QuizHandler struct {
	cfg      *config.Config
	engine   *game.Engine
	results  *service.ResultService
	chatLock *lock.ChatLock
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	cfg *config.Config,
	engine *game.Engine,
	results *service.ResultService,
	chatLock *lock.ChatLock,
) *QuizHandler {
	return &QuizHandler{
		cfg:      cfg,
		engine:   engine,
		results:  results,
		chatLock: chatLock,
	}
}

// userHandle returns the identity a sender plays under. Usernames are
// preferred; users without one fall back to first name, then numeric ID,
// so every sender maps to a stable non-empty handle.
func userHandle(sender *tele.User) string {
	if sender == nil {
		return ""
	}
	if sender.Username != "" {
		return sender.Username
	}
	if sender.FirstName != "" {
		return sender.FirstName
	}
	return strconv.FormatInt(sender.ID, 10)
}

// HandleQuiz handles the /quiz command by offering the mode menu. In a
// private chat only solo play makes sense, so registration opens
// immediately instead.
func (h *QuizHandler) HandleQuiz(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	if chat.Type == tele.ChatPrivate {
		return h.openRegistration(c, game.ModeSolo)
	}

	markup := &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{
			{{Text: "🎯 Solo", Data: callbackModeSolo}},
			{{Text: "⚔️ Free-for-all", Data: callbackModeFree}},
			{{Text: "👥 Teams", Data: callbackModeTeam}},
		},
	}
	return c.Send("🎲 Pick a quiz mode:", markup)
}

// openRegistration starts a registration window for the chat. The chat
// lock serializes concurrent opens for the same chat so exactly one
// wins; the loser sees the already-running reply.
func (h *QuizHandler) openRegistration(c tele.Context, mode game.Mode) error {
	ctx := context.Background()
	chat := c.Chat()
	host := userHandle(c.Sender())

	err := h.chatLock.WithLock(chat.ID, func() error {
		_, err := h.engine.OpenRegistration(ctx, chat.ID, mode, host)
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrSessionExists):
		return c.Reply("❌ A quiz is already running in this chat. Use /end_game to stop it.")
	case errors.Is(err, game.ErrNoQuestions):
		return c.Reply("❌ No questions available for this mode right now.")
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to open registration")
		return c.Reply("❌ Could not start a quiz, please try again later.")
	}
}

// HandleModeCallback handles the mode-menu button press.
func (h *QuizHandler) HandleModeCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil || c.Chat() == nil || c.Sender() == nil {
		return nil
	}

	var mode game.Mode
	switch trimCallbackData(callback.Data) {
	case callbackModeSolo:
		mode = game.ModeSolo
	case callbackModeFree:
		mode = game.ModeFreeForAll
	case callbackModeTeam:
		mode = game.ModeTeam
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown mode"})
	}

	if err := h.openRegistration(c, mode); err != nil {
		return err
	}
	// Remove the menu so it cannot be pressed twice.
	if callback.Message != nil {
		_ = c.Bot().Delete(callback.Message)
	}
	return c.Respond(&tele.CallbackResponse{})
}

// HandleJoinCallback handles the "join" button during registration.
func (h *QuizHandler) HandleJoinCallback(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()
	if c.Callback() == nil || chat == nil || sender == nil {
		return nil
	}

	err := h.engine.Join(ctx, chat.ID, userHandle(sender))
	switch {
	case err == nil:
		return c.Respond(&tele.CallbackResponse{Text: "✅ You're in!"})
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotRegistering):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Registration is closed"})
	case errors.Is(err, game.ErrWrongMode):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Join a team instead"})
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Join failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong"})
	}
}

// HandleTeam handles the /team <name> command: the sender founds a team
// and becomes its captain.
func (h *QuizHandler) HandleTeam(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return c.Reply("❌ Usage: /team <name>")
	}

	err := h.engine.CreateTeam(ctx, chat.ID, name, userHandle(sender))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotRegistering):
		return c.Reply("❌ Registration is not open.")
	case errors.Is(err, game.ErrWrongMode):
		return c.Reply("❌ Teams are only available in team mode.")
	case errors.Is(err, game.ErrTeamExists):
		return c.Reply("❌ A team with that name already exists.")
	case errors.Is(err, game.ErrAlreadyInTeam):
		return c.Reply("❌ You already belong to a team.")
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Team creation failed")
		return c.Reply("❌ Could not create the team.")
	}
}

// HandleJoinTeamCallback handles the per-team "join" buttons shown on
// the registration message.
func (h *QuizHandler) HandleJoinTeamCallback(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()
	callback := c.Callback()
	if callback == nil || chat == nil || sender == nil {
		return nil
	}

	team, ok := game.ParseJoinTeamCallback(trimCallbackData(callback.Data))
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
	}

	err := h.engine.JoinTeam(ctx, chat.ID, team, userHandle(sender))
	switch {
	case err == nil:
		return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("✅ Joined %s", team)})
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotRegistering):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Registration is closed"})
	case errors.Is(err, game.ErrNoTeam):
		return c.Respond(&tele.CallbackResponse{Text: "❌ That team no longer exists"})
	case errors.Is(err, game.ErrAlreadyInTeam):
		return c.Respond(&tele.CallbackResponse{Text: "❌ You already belong to a team"})
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Team join failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong"})
	}
}

// HandleStartNowCallback handles the "start now" button, cutting the
// registration window short.
func (h *QuizHandler) HandleStartNowCallback(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	if c.Callback() == nil || chat == nil {
		return nil
	}

	err := h.engine.StartNow(ctx, chat.ID)
	switch {
	case err == nil:
		return c.Respond(&tele.CallbackResponse{})
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotRegistering):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Nothing to start"})
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Start now failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong"})
	}
}

// HandleAnswerCallback handles a press on a multiple-choice option.
func (h *QuizHandler) HandleAnswerCallback(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()
	callback := c.Callback()
	if callback == nil || chat == nil || sender == nil {
		return nil
	}

	token, option, ok := game.ParseAnswerCallback(trimCallbackData(callback.Data))
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
	}

	outcome, err := h.engine.SubmitChoice(ctx, chat.ID, userHandle(sender), token, option)
	switch {
	case err == nil:
		if outcome.Verdict == game.VerdictCorrect {
			return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("✅ Correct! +%d", outcome.Points)})
		}
		return c.Respond(&tele.CallbackResponse{Text: "❌ Wrong answer"})
	case errors.Is(err, game.ErrStaleQuestion):
		return c.Respond(&tele.CallbackResponse{Text: "⏱ This question is already over"})
	case errors.Is(err, game.ErrAlreadyAnswered):
		return c.Respond(&tele.CallbackResponse{Text: "❌ You already answered"})
	case errors.Is(err, game.ErrNotCaptain):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Only the team captain may answer"})
	case errors.Is(err, game.ErrNotRegistered):
		return c.Respond(&tele.CallbackResponse{Text: "❌ You are not playing in this round"})
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotPlaying):
		return c.Respond(&tele.CallbackResponse{Text: "❌ No quiz is running"})
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Choice submission failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong"})
	}
}

// HandleNextCallback handles the manual "next question" button.
func (h *QuizHandler) HandleNextCallback(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	callback := c.Callback()
	if callback == nil || chat == nil {
		return nil
	}

	token, ok := game.ParseNextCallback(trimCallbackData(callback.Data))
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
	}

	err := h.engine.AdvanceNow(ctx, chat.ID, token)
	switch {
	case err == nil:
		return c.Respond(&tele.CallbackResponse{})
	case errors.Is(err, game.ErrStaleQuestion):
		return c.Respond(&tele.CallbackResponse{Text: "⏱ Already moved on"})
	case errors.Is(err, game.ErrNoSession), errors.Is(err, game.ErrNotPlaying):
		return c.Respond(&tele.CallbackResponse{Text: "❌ No quiz is running"})
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Advance failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong"})
	}
}

// HandleFinishCallback handles the "finish quiz" button on a result
// message.
func (h *QuizHandler) HandleFinishCallback(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	if c.Callback() == nil || chat == nil {
		return nil
	}

	if err := h.engine.Finish(ctx, chat.ID); err != nil {
		if errors.Is(err, game.ErrNoSession) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ No quiz is running"})
		}
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Finish failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong"})
	}
	return c.Respond(&tele.CallbackResponse{})
}

// HandleAnswerCommand handles /answer <text> for open-text questions.
func (h *QuizHandler) HandleAnswerCommand(c tele.Context) error {
	answer := strings.TrimSpace(c.Message().Payload)
	if answer == "" {
		return c.Reply("❌ Usage: /answer <your answer>")
	}
	return h.submitText(c, answer)
}

// HandleText handles plain text messages. During an open-text question
// they count as answer attempts; otherwise they are ignored so the bot
// stays quiet in regular conversation.
func (h *QuizHandler) HandleText(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return nil
	}
	return h.submitText(c, strings.TrimSpace(msg.Text))
}

func (h *QuizHandler) submitText(c tele.Context, answer string) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil || answer == "" {
		return nil
	}

	outcome, err := h.engine.SubmitText(ctx, chat.ID, userHandle(sender), answer)
	switch {
	case err == nil:
		switch outcome.Verdict {
		case game.VerdictCorrect:
			return c.Reply(fmt.Sprintf("✅ Correct! +%d points", outcome.Points))
		case game.VerdictRetry:
			return c.Reply(fmt.Sprintf("❌ Not quite. %d attempt(s) left.", outcome.AttemptsLeft))
		default:
			return c.Reply("❌ Wrong, no attempts left.")
		}
	case errors.Is(err, game.ErrNoSession),
		errors.Is(err, game.ErrNotPlaying),
		errors.Is(err, game.ErrNotTextQuestion),
		errors.Is(err, game.ErrNotRegistered),
		errors.Is(err, game.ErrNotCaptain),
		errors.Is(err, game.ErrAlreadyAnswered):
		// Ordinary chatter, a non-captain teammate, or a duplicate
		// attempt. Stay silent to keep group chat usable.
		return nil
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Text submission failed")
		return nil
	}
}

// HandleStatus handles the /game command showing the session state.
func (h *QuizHandler) HandleStatus(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	text, err := h.engine.Status(chat.ID)
	if err != nil {
		if errors.Is(err, game.ErrNoSession) {
			return c.Reply("💤 No quiz is running. Start one with /quiz.")
		}
		return c.Reply("❌ Something went wrong.")
	}
	return c.Reply(text)
}

// HandleEndGame handles /end_game: finishes a playing session with a
// proper result report, or cancels one that is still registering.
func (h *QuizHandler) HandleEndGame(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	err := h.chatLock.WithLock(chat.ID, func() error {
		return h.engine.Finish(ctx, chat.ID)
	})
	if err != nil {
		if errors.Is(err, game.ErrNoSession) {
			return c.Reply("💤 No quiz is running.")
		}
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("End game failed")
		return c.Reply("❌ Could not end the quiz.")
	}
	return nil
}

// HandleAbort handles the admin /quiz_abort command: the session is torn
// down without reporting any scores.
func (h *QuizHandler) HandleAbort(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	err := h.chatLock.WithLock(chat.ID, func() error {
		return h.engine.Cancel(ctx, chat.ID)
	})
	if err != nil {
		if errors.Is(err, game.ErrNoSession) {
			return c.Reply("💤 No quiz is running.")
		}
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Abort failed")
		return c.Reply("❌ Could not abort the quiz.")
	}
	return nil
}

// HandleTop handles /top. In a group it shows that chat's all-time
// standings; in private chat the global ones.
func (h *QuizHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	limit := h.cfg.Quiz.TopLimit
	if limit <= 0 {
		limit = 10
	}

	var rows []model.LeaderboardRow
	var err error
	if chat.Type == tele.ChatPrivate {
		rows, err = h.results.Leaderboard(ctx, limit)
	} else {
		rows, err = h.results.ChatLeaderboard(ctx, chat.ID, limit)
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Leaderboard query failed")
		return c.Reply("❌ Could not load the leaderboard.")
	}
	if len(rows) == 0 {
		return c.Reply("📊 No games recorded yet. Start one with /quiz!")
	}

	var sb strings.Builder
	sb.WriteString("🏆 All-time leaderboard\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, row := range rows {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s — %d pts (%d games)\n", rank, row.Name, row.TotalPoints, row.GamesPlayed))
	}
	return c.Reply(sb.String())
}

// trimCallbackData strips the \f prefix telebot adds to callback data.
func trimCallbackData(data string) string {
	return strings.TrimPrefix(data, "\f")
}
