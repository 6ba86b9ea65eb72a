package game

import (
	"context"

	"github.com/rs/zerolog/log"
)

// finalize ends a session: stops every timer, reports scores to the
// ledger, shows the final standings and removes the session from the
// registry. Concurrent callers (question exhaustion, manual finish, a
// defensive teardown) are serialized by the session lock; the first one
// wins and the rest no-op, so the ledger report and the final message
// each happen at most once.
func (e *Engine) finalize(ctx context.Context, s *Session) {
	s.mu.Lock()
	if s.finalizing {
		s.mu.Unlock()
		return
	}
	s.finalizing = true
	s.phase = PhaseFinalizing
	s.stopAllTimersLocked()
	standings := s.standingsLocked()
	quizName := s.QuizName
	s.mu.Unlock()

	// Ledger reporting is best-effort: a failure is logged and the
	// in-chat report still goes out.
	if len(standings) > 0 {
		if err := e.ledger.ReportResults(ctx, standings); err != nil {
			log.Warn().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to report results to ledger")
		}
	}

	s.mu.Lock()
	alreadySent := s.reportSent
	s.reportSent = true
	s.mu.Unlock()

	if !alreadySent {
		if _, err := e.presenter.Present(ctx, s.ChatID, finalContent(quizName, standings)); err != nil {
			log.Error().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to present final standings")
		}
	}

	e.sessions.Remove(s.ChatID)

	s.mu.Lock()
	s.phase = PhaseClosed
	s.mu.Unlock()

	log.Info().
		Int64("chat_id", s.ChatID).
		Int("entries", len(standings)).
		Msg("Session finalized")
}

// ForceClose defensively finalizes a session found in an inconsistent
// state. Used when internal invariants are violated: finishing and
// removing beats leaving the chat stuck with a half-resolved session.
func (e *Engine) ForceClose(ctx context.Context, chatID int64) {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return
	}
	log.Error().Int64("chat_id", chatID).Msg("Force-closing session after internal inconsistency")
	e.finalize(ctx, s)
}
