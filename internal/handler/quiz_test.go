package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/game"
	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/pkg/lock"
)

// stubContext implements the handful of tele.Context methods the text
// handler touches and records replies; everything else panics via the
// embedded nil interface.
type stubContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	message *tele.Message
	replies []string
}

func (c *stubContext) Chat() *tele.Chat       { return c.chat }
func (c *stubContext) Sender() *tele.User     { return c.sender }
func (c *stubContext) Message() *tele.Message { return c.message }

func (c *stubContext) Reply(what interface{}, _ ...interface{}) error {
	if text, ok := what.(string); ok {
		c.replies = append(c.replies, text)
	}
	return nil
}

func groupMessage(chatID int64, username, text string) *stubContext {
	chat := &tele.Chat{ID: chatID, Type: tele.ChatGroup}
	sender := &tele.User{ID: 1, Username: username}
	return &stubContext{
		chat:    chat,
		sender:  sender,
		message: &tele.Message{Text: text, Chat: chat, Sender: sender},
	}
}

type stubPresenter struct {
	nextRef game.MessageRef
}

func (p *stubPresenter) Present(_ context.Context, _ int64, _ game.Content) (game.MessageRef, error) {
	p.nextRef++
	return p.nextRef, nil
}

func (p *stubPresenter) Update(_ context.Context, _ int64, _ game.MessageRef, _ game.Content) error {
	return nil
}

func (p *stubPresenter) Remove(_ context.Context, _ int64, _ game.MessageRef) error {
	return nil
}

type stubSource struct {
	questions []model.Question
}

func (s *stubSource) FetchQuestionSet(_ context.Context, _ game.Mode, _ int64, _ int, _ time.Duration) (model.QuizInfo, []model.Question, error) {
	return model.QuizInfo{Name: "Test Quiz"}, append([]model.Question(nil), s.questions...), nil
}

type stubLedger struct{}

func (stubLedger) ReportResults(_ context.Context, _ []model.ScoreEntry) error { return nil }

func newTextTestHandler(questions []model.Question) (*QuizHandler, *game.Engine) {
	settings := game.Settings{
		SoloRegistration:  time.Hour,
		OpenRegistration:  time.Hour,
		TeamRegistration:  time.Hour,
		QuestionCount:     10,
		TimePerAnswer:     time.Hour,
		NextQuestionDelay: time.Hour,
	}
	engine := game.New(game.NewRegistry(), &stubPresenter{}, &stubSource{questions: questions}, stubLedger{}, settings)
	h := NewQuizHandler(&config.Config{}, engine, nil, lock.NewChatLock())
	return h, engine
}

// During a team open-text question the chat keeps flowing: plain messages
// from teammates and bystanders are not answer attempts and must not draw
// a rejection reply.
func TestHandleTextTeamNonCaptainStaysSilent(t *testing.T) {
	const chatID int64 = -200100
	h, engine := newTextTestHandler([]model.Question{
		{
			Text:            "Capital of France?",
			Type:            model.QuestionTypeText,
			CorrectAnswer:   "Paris",
			AcceptedAnswers: []string{"Paris"},
		},
		{
			Text:            "Capital of Italy?",
			Type:            model.QuestionTypeText,
			CorrectAnswer:   "Rome",
			AcceptedAnswers: []string{"Rome"},
		},
	})
	ctx := context.Background()

	_, err := engine.OpenRegistration(ctx, chatID, game.ModeTeam, "alice")
	require.NoError(t, err)
	require.NoError(t, engine.CreateTeam(ctx, chatID, "Reds", "alice"))
	require.NoError(t, engine.JoinTeam(ctx, chatID, "Reds", "bob"))
	require.NoError(t, engine.StartNow(ctx, chatID))

	teammate := groupMessage(chatID, "bob", "Paris")
	require.NoError(t, h.HandleText(teammate))
	assert.Empty(t, teammate.replies, "a teammate's message is chatter, not a rejection target")

	bystander := groupMessage(chatID, "mallory", "what's going on here")
	require.NoError(t, h.HandleText(bystander))
	assert.Empty(t, bystander.replies)

	captain := groupMessage(chatID, "alice", "Paris")
	require.NoError(t, h.HandleText(captain))
	require.Len(t, captain.replies, 1, "the captain's answer still gets feedback")
	assert.Contains(t, captain.replies[0], "Correct")
}

// Outside any quiz the bot never reacts to plain conversation.
func TestHandleTextNoSessionStaysSilent(t *testing.T) {
	h, _ := newTextTestHandler(nil)

	msg := groupMessage(-200101, "alice", "hello everyone")
	require.NoError(t, h.HandleText(msg))
	assert.Empty(t, msg.replies)
}
