package game

import (
	"context"
	"strings"

	"telegram-trivia-bot/internal/model"
)

// Verdict classifies an accepted answer submission.
type Verdict int

const (
	// VerdictCorrect: the answer was right and points were awarded.
	VerdictCorrect Verdict = iota
	// VerdictWrong: the answer was finally wrong; the responder is done
	// with this question.
	VerdictWrong
	// VerdictRetry: an open-text answer was wrong but attempts remain.
	VerdictRetry
)

// AnswerOutcome reports what an accepted submission did.
type AnswerOutcome struct {
	Verdict      Verdict
	Points       int
	AttemptsLeft int
}

// openTextAttempts is the attempt budget per open-text question.
const openTextAttempts = 2

// SubmitChoice processes a multiple-choice answer identified by the
// question token and the index into the as-presented (shuffled) option
// order. Correctness is compared against the correct choice by value, not
// by stored position.
func (e *Engine) SubmitChoice(ctx context.Context, chatID int64, user string, token uint64, option int) (AnswerOutcome, error) {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return AnswerOutcome{}, ErrNoSession
	}

	s.mu.Lock()
	if err := s.answerableLocked(user); err != nil {
		s.mu.Unlock()
		return AnswerOutcome{}, err
	}
	if s.token != token || s.resolved {
		s.mu.Unlock()
		return AnswerOutcome{}, ErrStaleQuestion
	}
	q := s.currentQuestionLocked()
	if q.Type != model.QuestionTypeChoice {
		s.mu.Unlock()
		return AnswerOutcome{}, ErrStaleQuestion
	}

	correct := option >= 0 && option < len(s.presentedOptions) &&
		s.presentedOptions[option] == q.CorrectAnswer

	outcome := AnswerOutcome{Verdict: VerdictWrong}
	target := s.scoreTargetLocked(user)
	if correct {
		s.scores[target]++
		s.answeredRight[user] = struct{}{}
		outcome = AnswerOutcome{Verdict: VerdictCorrect, Points: 1}
	} else {
		s.answeredWrong[user] = struct{}{}
	}
	s.mu.Unlock()

	e.checkCompletion(ctx, s, token)
	return outcome, nil
}

// SubmitText processes a free-text answer against the current open-text
// question. Text answers arrive as plain chat messages without a token
// envelope, so they always target the current question. A wrong answer
// consumes one of the responder's attempts; exhausting them records the
// responder as finally wrong, which in team mode alone can complete the
// question (the team's single speaker is done).
func (e *Engine) SubmitText(ctx context.Context, chatID int64, user, answer string) (AnswerOutcome, error) {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return AnswerOutcome{}, ErrNoSession
	}

	s.mu.Lock()
	if err := s.answerableLocked(user); err != nil {
		s.mu.Unlock()
		return AnswerOutcome{}, err
	}
	if s.resolved {
		s.mu.Unlock()
		return AnswerOutcome{}, ErrStaleQuestion
	}
	q := s.currentQuestionLocked()
	if q.Type != model.QuestionTypeText {
		s.mu.Unlock()
		return AnswerOutcome{}, ErrNotTextQuestion
	}

	attempts, started := s.attemptsLeft[user]
	if !started {
		attempts = openTextAttempts
	}
	if attempts <= 0 {
		// Should be unreachable: zero attempts records the user into
		// answeredWrong, caught above.
		s.mu.Unlock()
		return AnswerOutcome{}, ErrAlreadyAnswered
	}

	target := s.scoreTargetLocked(user)
	token := s.token

	var outcome AnswerOutcome
	if matchesAnswer(q, answer) {
		// First-attempt correct scores double.
		points := 1
		if attempts == openTextAttempts {
			points = 2
		}
		s.scores[target] += points
		s.answeredRight[user] = struct{}{}
		outcome = AnswerOutcome{Verdict: VerdictCorrect, Points: points}
	} else {
		attempts--
		s.attemptsLeft[user] = attempts
		if attempts <= 0 {
			s.answeredWrong[user] = struct{}{}
			outcome = AnswerOutcome{Verdict: VerdictWrong}
		} else {
			s.mu.Unlock()
			return AnswerOutcome{Verdict: VerdictRetry, AttemptsLeft: attempts}, nil
		}
	}
	s.mu.Unlock()

	e.checkCompletion(ctx, s, token)
	return outcome, nil
}

// answerableLocked applies the submission checks shared by both answer
// kinds: the session must be playing, the responder must be eligible for
// the mode, and they must not have a final answer recorded already.
// Callers hold s.mu.
func (s *Session) answerableLocked(user string) error {
	if s.phase != PhasePlaying {
		return ErrNotPlaying
	}
	if s.current >= len(s.questions) {
		return ErrStaleQuestion
	}

	if s.Mode == ModeTeam {
		team, inTeam := s.playerTeam[user]
		if !inTeam || s.captains[team] != user {
			return ErrNotCaptain
		}
	} else {
		if _, registered := s.players[user]; !registered {
			return ErrNotRegistered
		}
	}

	if _, done := s.answeredRight[user]; done {
		return ErrAlreadyAnswered
	}
	if _, done := s.answeredWrong[user]; done {
		return ErrAlreadyAnswered
	}
	return nil
}

// matchesAnswer compares a free-text answer against the question's
// accepted set, ignoring case and surrounding whitespace.
func matchesAnswer(q *model.Question, answer string) bool {
	normalized := strings.TrimSpace(answer)
	accepted := q.AcceptedAnswers
	if len(accepted) == 0 {
		accepted = []string{q.CorrectAnswer}
	}
	for _, a := range accepted {
		if strings.EqualFold(normalized, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}
