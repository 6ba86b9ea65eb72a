package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/model"
)

// resolveCause names which trigger won the race to close a question.
type resolveCause string

const (
	causeTimeout    resolveCause = "timeout"
	causeCompletion resolveCause = "completion"
)

// presentQuestion arms and presents the current question: bumps the
// token, resets per-question state, shuffles choice options, delivers the
// payload and starts the countdown with its notice timers. Finalizes
// instead when the question list is exhausted.
func (e *Engine) presentQuestion(ctx context.Context, s *Session) {
	s.mu.Lock()
	if s.phase != PhasePlaying {
		s.mu.Unlock()
		return
	}
	if s.current >= len(s.questions) {
		s.mu.Unlock()
		e.finalize(ctx, s)
		return
	}

	token := s.resetQuestionLocked()
	q := s.currentQuestionLocked()

	var options []string
	if q.Type == model.QuestionTypeChoice {
		options = q.Options()
		rand.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		s.presentedOptions = options
	}

	limit := q.TimeLimit
	if limit <= 0 {
		limit = e.settings.TimePerAnswer
	}

	number := s.current + 1
	total := len(s.questions)
	previousMsg := s.questionMsg
	s.mu.Unlock()

	// The previous question's message is removed so stale buttons cannot
	// be pressed; failure to remove is harmless because stale presses are
	// rejected by token anyway.
	if previousMsg != 0 {
		if err := e.presenter.Remove(ctx, s.ChatID, previousMsg); err != nil {
			log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to remove previous question message")
		}
	}

	ref, err := e.presenter.Present(ctx, s.ChatID, questionContent(q, number, total, options, limit, token))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Int("question", number).Msg("Failed to present question")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying || s.token != token {
		return
	}
	s.questionMsg = ref

	s.questionTimers = []*time.Timer{
		time.AfterFunc(limit, func() {
			e.resolve(context.Background(), s, token, causeTimeout)
		}),
	}
	// Intermediate notices are presentation-only and never affect
	// resolution.
	if limit > 30*time.Second {
		s.questionTimers = append(s.questionTimers, time.AfterFunc(limit-30*time.Second, func() {
			e.notice(context.Background(), s, token, 30)
		}))
	}
	if limit > 10*time.Second {
		s.questionTimers = append(s.questionTimers, time.AfterFunc(limit-10*time.Second, func() {
			e.notice(context.Background(), s, token, 10)
		}))
	}

	log.Debug().
		Int64("chat_id", s.ChatID).
		Int("question", number).
		Uint64("token", token).
		Dur("limit", limit).
		Msg("Question armed")
}

// notice delivers a remaining-time warning if its question is still live.
func (e *Engine) notice(ctx context.Context, s *Session, token uint64, secondsLeft int) {
	s.mu.Lock()
	stale := s.phase != PhasePlaying || s.token != token || s.resolved
	s.mu.Unlock()
	if stale {
		return
	}
	if _, err := e.presenter.Present(ctx, s.ChatID, noticeContent(secondsLeft)); err != nil {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to present countdown notice")
	}
}

// resolve closes out the question identified by token. The countdown
// timeout and the all-answered completion check race here; the session
// lock plus the token/resolved pair guarantee exactly one of them
// performs the transition, and a trigger for an advanced-past question is
// a no-op.
func (e *Engine) resolve(ctx context.Context, s *Session, token uint64, cause resolveCause) {
	s.mu.Lock()
	if s.phase != PhasePlaying || s.token != token || s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.stopQuestionTimersLocked()
	summary := e.buildSummaryLocked(s)
	s.mu.Unlock()

	log.Debug().
		Int64("chat_id", s.ChatID).
		Uint64("token", token).
		Str("cause", string(cause)).
		Msg("Question resolved")

	if _, err := e.presenter.Present(ctx, s.ChatID, resultContent(summary, token)); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to present question result")
	}

	s.mu.Lock()
	if s.phase == PhasePlaying && s.token == token {
		s.advanceTimer = time.AfterFunc(e.settings.NextQuestionDelay, func() {
			e.advance(context.Background(), s, token)
		})
	}
	s.mu.Unlock()
}

// checkCompletion resolves the question when every required responder has
// answered. Called by the answer processor after each finalized answer.
func (e *Engine) checkCompletion(ctx context.Context, s *Session, token uint64) {
	s.mu.Lock()
	complete := s.phase == PhasePlaying && s.token == token && !s.resolved && s.allAnsweredLocked()
	s.mu.Unlock()
	if complete {
		e.resolve(ctx, s, token, causeCompletion)
	}
}

// advance moves past a resolved question: the automatic post-result pause
// and the manual next button both land here, and the token bump under the
// lock makes the second trigger a no-op.
func (e *Engine) advance(ctx context.Context, s *Session, token uint64) {
	s.mu.Lock()
	if s.phase != PhasePlaying || s.token != token || !s.resolved {
		s.mu.Unlock()
		return
	}
	s.token++
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	s.current++
	done := s.current >= len(s.questions)
	s.mu.Unlock()

	if done {
		e.finalize(ctx, s)
		return
	}
	e.presentQuestion(ctx, s)
}

// AdvanceNow is the manual "next question" trigger. It is only honored
// after the question identified by token has been resolved; pressing it
// on a live or stale question is rejected.
func (e *Engine) AdvanceNow(ctx context.Context, chatID int64, token uint64) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	if s.phase != PhasePlaying {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	if s.token != token || !s.resolved {
		s.mu.Unlock()
		return ErrStaleQuestion
	}
	s.mu.Unlock()

	e.advance(ctx, s, token)
	return nil
}

// buildSummaryLocked snapshots a resolved question's outcome. Callers
// hold s.mu.
func (e *Engine) buildSummaryLocked(s *Session) resultSummary {
	q := s.currentQuestionLocked()

	right := setToList(s.answeredRight)
	wrong := setToList(s.answeredWrong)

	var notAnswered []string
	for _, id := range s.requiredRespondersLocked() {
		if _, ok := s.answeredRight[id]; ok {
			continue
		}
		if _, ok := s.answeredWrong[id]; ok {
			continue
		}
		notAnswered = append(notAnswered, id)
	}

	return resultSummary{
		questionNumber: s.current + 1,
		totalQuestions: len(s.questions),
		correctAnswer:  q.CorrectAnswer,
		comment:        q.Comment,
		right:          right,
		wrong:          wrong,
		notAnswered:    notAnswered,
		standings:      s.standingsLocked(),
		teamMode:       s.Mode == ModeTeam,
	}
}
