package game

import (
	"sync"
	"time"

	"telegram-trivia-bot/internal/model"
)

// Mode is the participation mode of a session.
type Mode int

const (
	// ModeSolo is a single player answering alone.
	ModeSolo Mode = iota
	// ModeFreeForAll is every registered player answering individually.
	ModeFreeForAll
	// ModeTeam is team play where only each team's captain may answer.
	ModeTeam
)

// String returns the wire name of the mode, matching the question store's
// quiz type values.
func (m Mode) String() string {
	switch m {
	case ModeSolo:
		return "solo"
	case ModeTeam:
		return "team"
	default:
		return "dm"
	}
}

// Phase is the top-level lifecycle state of a session.
type Phase int

const (
	PhaseRegistering Phase = iota
	PhasePlaying
	PhaseFinalizing
	PhaseClosed
)

// Session is the mutable state of one running quiz session. All fields
// below mu are guarded by it; the engine holds mu only for state
// transitions and snapshots, never across presenter or ledger calls.
type Session struct {
	ChatID   int64
	Mode     Mode
	QuizName string

	mu    sync.Mutex
	phase Phase

	// Participants. players is used in solo and free-for-all mode; teams,
	// captains and playerTeam in team mode.
	players    map[string]struct{}
	teams      map[string][]string
	captains   map[string]string
	playerTeam map[string]string

	// scores is keyed by player handle, or by team name in team mode.
	scores map[string]int

	questions []model.Question
	current   int

	// token distinguishes the current question instance from stale,
	// already-advanced-past instances. Every deferred action captures the
	// token it was armed for and no-ops when it no longer matches.
	token    uint64
	resolved bool

	// Per-question answer tracking, reset when a question is armed.
	answeredRight    map[string]struct{}
	answeredWrong    map[string]struct{}
	attemptsLeft     map[string]int
	presentedOptions []string

	finalizing bool
	reportSent bool

	regEndsAt   time.Time
	regMsg      MessageRef
	questionMsg MessageRef

	// Cancellable timer handles: the registration window, the active
	// question countdown with its notice timers, and the pause before the
	// next question. All are stopped during Advance, Finalize and Cancel.
	regTimer       *time.Timer
	questionTimers []*time.Timer
	advanceTimer   *time.Timer
}

func newSession(chatID int64, mode Mode, quizName string, questions []model.Question) *Session {
	return &Session{
		ChatID:        chatID,
		Mode:          mode,
		QuizName:      quizName,
		phase:         PhaseRegistering,
		players:       make(map[string]struct{}),
		teams:         make(map[string][]string),
		captains:      make(map[string]string),
		playerTeam:    make(map[string]string),
		scores:        make(map[string]int),
		questions:     questions,
		answeredRight: make(map[string]struct{}),
		answeredWrong: make(map[string]struct{}),
		attemptsLeft:  make(map[string]int),
	}
}

// Phase returns the session's current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Token returns the current question token. Deferred actions capture it
// to detect staleness.
func (s *Session) Token() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Scores returns a copy of the current score table.
func (s *Session) Scores() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// currentQuestionLocked returns the current question. Callers must hold mu
// and have checked bounds.
func (s *Session) currentQuestionLocked() *model.Question {
	return &s.questions[s.current]
}

// emptyLocked reports whether nobody registered.
func (s *Session) emptyLocked() bool {
	return len(s.players) == 0 && len(s.teams) == 0
}

// requiredResponders returns the identities whose answers close out a
// question: every registered player, or every team's captain in team mode.
func (s *Session) requiredRespondersLocked() []string {
	if s.Mode == ModeTeam {
		out := make([]string, 0, len(s.captains))
		for _, captain := range s.captains {
			out = append(out, captain)
		}
		return out
	}
	out := make([]string, 0, len(s.players))
	for p := range s.players {
		out = append(out, p)
	}
	return out
}

// allAnsweredLocked reports whether every required responder has a final
// answer recorded for the current question.
func (s *Session) allAnsweredLocked() bool {
	required := s.requiredRespondersLocked()
	if len(required) == 0 {
		return false
	}
	for _, id := range required {
		if _, ok := s.answeredRight[id]; ok {
			continue
		}
		if _, ok := s.answeredWrong[id]; !ok {
			return false
		}
	}
	return true
}

// scoreTargetLocked maps an answering identity to the score row it feeds:
// the player handle, or the player's team name in team mode.
func (s *Session) scoreTargetLocked(user string) string {
	if s.Mode == ModeTeam {
		return s.playerTeam[user]
	}
	return user
}

// resetQuestionLocked arms the session for a new question instance: bumps
// the token, clears per-question answer state and invalidates any pending
// deferred action from the previous question.
func (s *Session) resetQuestionLocked() uint64 {
	s.token++
	s.resolved = false
	s.answeredRight = make(map[string]struct{})
	s.answeredWrong = make(map[string]struct{})
	s.attemptsLeft = make(map[string]int)
	s.presentedOptions = nil
	return s.token
}

// stopQuestionTimersLocked cancels the active countdown and its notice
// timers. Safe to call when none are armed or after they fired.
func (s *Session) stopQuestionTimersLocked() {
	for _, t := range s.questionTimers {
		t.Stop()
	}
	s.questionTimers = nil
}

// stopAllTimersLocked cancels every timer the session owns.
func (s *Session) stopAllTimersLocked() {
	if s.regTimer != nil {
		s.regTimer.Stop()
		s.regTimer = nil
	}
	s.stopQuestionTimersLocked()
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

// standingsLocked returns score rows sorted by points descending, name
// ascending for equal points.
func (s *Session) standingsLocked() []model.ScoreEntry {
	out := make([]model.ScoreEntry, 0, len(s.scores))
	for name, points := range s.scores {
		out = append(out, model.ScoreEntry{Name: name, Points: points, ChatID: s.ChatID})
	}
	sortStandings(out)
	return out
}
