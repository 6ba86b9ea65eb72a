// Package model defines the data models for the trivia bot.
package model

import "time"

// QuestionType distinguishes how a question is answered.
type QuestionType string

const (
	// QuestionTypeChoice is a multiple-choice question answered by picking
	// one of the presented options.
	QuestionTypeChoice QuestionType = "variant"
	// QuestionTypeText is an open question answered with free text.
	QuestionTypeText QuestionType = "text"
)

// Question is a single quiz question as loaded from the question store.
// The engine treats it as immutable.
type Question struct {
	ID            int64
	Text          string
	Type          QuestionType
	CorrectAnswer string
	// WrongAnswers holds the distractor options for choice questions.
	// Empty for text questions.
	WrongAnswers []string
	// AcceptedAnswers holds every answer treated as correct for text
	// questions (case and surrounding whitespace insensitive). Always
	// contains at least CorrectAnswer.
	AcceptedAnswers []string
	TimeLimit       time.Duration
	Comment         string
	ImageURL        string
}

// Options returns the full option list for a choice question in stored
// order (distractors first, correct answer last). Callers shuffle before
// presenting.
func (q *Question) Options() []string {
	opts := make([]string, 0, len(q.WrongAnswers)+1)
	opts = append(opts, q.WrongAnswers...)
	opts = append(opts, q.CorrectAnswer)
	return opts
}

// QuizInfo describes a question set before its questions are fetched.
type QuizInfo struct {
	ID            int64
	Name          string
	Mode          string
	QuestionCount int
	TimePerAnswer time.Duration
}

// ScoreEntry is one row reported to the score ledger when a session ends.
// Name is a player handle in solo/free-for-all sessions and a team name in
// team sessions.
type ScoreEntry struct {
	Name   string
	Points int
	ChatID int64
}

// LeaderboardRow is an aggregated all-time standing from the ledger.
type LeaderboardRow struct {
	Name        string
	TotalPoints int64
	GamesPlayed int64
}
