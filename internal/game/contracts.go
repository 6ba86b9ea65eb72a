// Package game implements the quiz session engine: the per-chat state
// machine that runs a trivia session from registration through question
// cycling to finalization. The engine decides what to present and when;
// delivery, persistence and identity are injected capabilities.
package game

import (
	"context"
	"time"

	"telegram-trivia-bot/internal/model"
)

// MessageRef identifies a previously presented message so it can be
// updated or removed later. Zero means "no message".
type MessageRef int

// Button is a single inline control attached to presented content.
// Data is the opaque callback payload routed back to the engine.
type Button struct {
	Label string
	Data  string
}

// Content is one unit of presentable output: text, an optional image and
// optional inline controls.
type Content struct {
	Text     string
	ImageURL string
	Buttons  [][]Button
}

// Presenter delivers engine output to a chat. Implementations wrap the
// chat transport; the engine never talks to Telegram directly.
// Presenter calls may fail (message already deleted, transport hiccup);
// the engine logs and absorbs such failures.
type Presenter interface {
	Present(ctx context.Context, chatID int64, content Content) (MessageRef, error)
	Update(ctx context.Context, chatID int64, ref MessageRef, content Content) error
	Remove(ctx context.Context, chatID int64, ref MessageRef) error
}

// QuestionSource supplies a sized, pre-selected question set for a new
// session. Rotation and anti-repeat logic live behind this interface.
type QuestionSource interface {
	FetchQuestionSet(ctx context.Context, mode Mode, chatID int64, size int, timeLimit time.Duration) (model.QuizInfo, []model.Question, error)
}

// ScoreLedger records final standings. Reporting is best-effort: a ledger
// failure must not prevent the in-chat final report.
type ScoreLedger interface {
	ReportResults(ctx context.Context, entries []model.ScoreEntry) error
}

// Settings holds the engine's tunable timings and sizes, supplied from
// configuration at construction time.
type Settings struct {
	SoloRegistration  time.Duration
	OpenRegistration  time.Duration
	TeamRegistration  time.Duration
	QuestionCount     int
	TimePerAnswer     time.Duration
	NextQuestionDelay time.Duration
}

// registrationWindow returns the join window for a mode.
func (s Settings) registrationWindow(m Mode) time.Duration {
	switch m {
	case ModeSolo:
		return s.SoloRegistration
	case ModeTeam:
		return s.TeamRegistration
	default:
		return s.OpenRegistration
	}
}
