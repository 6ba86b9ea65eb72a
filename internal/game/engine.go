package game

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Engine runs quiz sessions. One Engine serves every chat; per-chat state
// lives in the Registry and is guarded by each session's own lock, so
// sessions progress independently.
type Engine struct {
	sessions  *Registry
	presenter Presenter
	source    QuestionSource
	ledger    ScoreLedger
	settings  Settings
}

// New creates an Engine with its injected collaborators.
func New(sessions *Registry, presenter Presenter, source QuestionSource, ledger ScoreLedger, settings Settings) *Engine {
	return &Engine{
		sessions:  sessions,
		presenter: presenter,
		source:    source,
		ledger:    ledger,
		settings:  settings,
	}
}

// Sessions exposes the registry for status inspection.
func (e *Engine) Sessions() *Registry {
	return e.sessions
}

// OpenRegistration starts a new session in a chat: fetches the question
// set, opens the join window and arms its expiry timer. host is the user
// who initiated the session; in solo mode they are the lone participant.
func (e *Engine) OpenRegistration(ctx context.Context, chatID int64, mode Mode, host string) (*Session, error) {
	if existing, ok := e.sessions.Find(chatID); ok {
		existing.mu.Lock()
		phase := existing.phase
		existing.mu.Unlock()
		if phase != PhaseClosed {
			return nil, ErrSessionExists
		}
		// A closed session still in the map is mid-teardown; treat as live.
		return nil, ErrSessionExists
	}

	info, questions, err := e.source.FetchQuestionSet(ctx, mode, chatID, e.settings.QuestionCount, e.settings.TimePerAnswer)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch question set: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	s := newSession(chatID, mode, info.Name, questions)
	window := e.settings.registrationWindow(mode)
	s.regEndsAt = time.Now().Add(window)
	if mode == ModeSolo {
		s.players[host] = struct{}{}
	}

	if err := e.sessions.Create(s); err != nil {
		return nil, err
	}

	ref, err := e.presenter.Present(ctx, chatID, registrationContent(s, int(window.Seconds())))
	if err != nil {
		// Without the registration message nobody can join; back out.
		e.sessions.Remove(chatID)
		return nil, fmt.Errorf("failed to present registration: %w", err)
	}

	s.mu.Lock()
	s.regMsg = ref
	s.regTimer = time.AfterFunc(window, func() {
		e.BeginPlay(context.Background(), chatID)
	})
	s.mu.Unlock()

	log.Info().
		Int64("chat_id", chatID).
		Str("mode", mode.String()).
		Str("quiz", info.Name).
		Int("questions", len(questions)).
		Dur("window", window).
		Msg("Registration opened")

	return s, nil
}

// Join registers a player during the join window. Valid in solo and
// free-for-all sessions; joining twice is a no-op.
func (e *Engine) Join(ctx context.Context, chatID int64, user string) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	if s.phase != PhaseRegistering {
		s.mu.Unlock()
		return ErrNotRegistering
	}
	if s.Mode == ModeTeam {
		s.mu.Unlock()
		return ErrWrongMode
	}
	if _, already := s.players[user]; already {
		s.mu.Unlock()
		return nil
	}
	s.players[user] = struct{}{}
	s.mu.Unlock()

	e.refreshRegistration(ctx, s)
	return nil
}

// CreateTeam creates a team during the join window with its creator as
// captain.
func (e *Engine) CreateTeam(ctx context.Context, chatID int64, team, captain string) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	if s.phase != PhaseRegistering {
		s.mu.Unlock()
		return ErrNotRegistering
	}
	if s.Mode != ModeTeam {
		s.mu.Unlock()
		return ErrWrongMode
	}
	if _, exists := s.teams[team]; exists {
		s.mu.Unlock()
		return ErrTeamExists
	}
	if _, inTeam := s.playerTeam[captain]; inTeam {
		s.mu.Unlock()
		return ErrAlreadyInTeam
	}
	s.teams[team] = []string{captain}
	s.captains[team] = captain
	s.playerTeam[captain] = team
	s.mu.Unlock()

	e.refreshRegistration(ctx, s)
	return nil
}

// JoinTeam adds a player to an existing team. Re-joining the same team is
// a no-op.
func (e *Engine) JoinTeam(ctx context.Context, chatID int64, team, user string) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	if s.phase != PhaseRegistering {
		s.mu.Unlock()
		return ErrNotRegistering
	}
	if s.Mode != ModeTeam {
		s.mu.Unlock()
		return ErrWrongMode
	}
	members, exists := s.teams[team]
	if !exists {
		s.mu.Unlock()
		return ErrNoTeam
	}
	if current, inTeam := s.playerTeam[user]; inTeam {
		s.mu.Unlock()
		if current == team {
			return nil
		}
		return ErrAlreadyInTeam
	}
	s.teams[team] = append(members, user)
	s.playerTeam[user] = team
	s.mu.Unlock()

	e.refreshRegistration(ctx, s)
	return nil
}

// refreshRegistration re-renders the registration roster in place.
// Presentation failures are absorbed.
func (e *Engine) refreshRegistration(ctx context.Context, s *Session) {
	s.mu.Lock()
	if s.phase != PhaseRegistering || s.regMsg == 0 {
		s.mu.Unlock()
		return
	}
	secondsLeft := int(time.Until(s.regEndsAt).Seconds())
	if secondsLeft < 0 {
		secondsLeft = 0
	}
	ref := s.regMsg
	content := registrationContent(s, secondsLeft)
	s.mu.Unlock()

	if err := e.presenter.Update(ctx, s.ChatID, ref, content); err != nil {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to update registration message")
	}
}

// BeginPlay closes the join window and starts the question cycle. Both
// the window expiry timer and an explicit early start funnel here; the
// transition is idempotent — any caller finding the session past
// REGISTERING no-ops. A session with no participants is aborted instead
// of started.
func (e *Engine) BeginPlay(ctx context.Context, chatID int64) {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.phase != PhaseRegistering {
		s.mu.Unlock()
		return
	}
	if s.regTimer != nil {
		s.regTimer.Stop()
		s.regTimer = nil
	}

	if s.emptyLocked() {
		s.phase = PhaseClosed
		s.mu.Unlock()
		e.sessions.Remove(chatID)
		if _, err := e.presenter.Present(ctx, chatID, abortedContent()); err != nil {
			log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to present abort notice")
		}
		log.Info().Int64("chat_id", chatID).Msg("Session aborted: nobody registered")
		return
	}

	s.phase = PhasePlaying
	s.current = 0
	for _, name := range s.scoreRowsLocked() {
		s.scores[name] = 0
	}
	regMsg := s.regMsg
	s.mu.Unlock()

	if regMsg != 0 {
		closed := Content{Text: "Registration closed — the quiz is starting!"}
		if err := e.presenter.Update(ctx, chatID, regMsg, closed); err != nil {
			log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to close registration message")
		}
	}

	log.Info().Int64("chat_id", chatID).Msg("Session entered playing phase")
	e.presentQuestion(ctx, s)
}

// StartNow ends registration early on explicit request.
func (e *Engine) StartNow(ctx context.Context, chatID int64) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}
	s.mu.Lock()
	registering := s.phase == PhaseRegistering
	s.mu.Unlock()
	if !registering {
		return ErrNotRegistering
	}
	e.BeginPlay(ctx, chatID)
	return nil
}

// Finish ends a session on explicit request. A playing session is
// finalized normally (scores reported, standings shown); a registering
// one is torn down without a report.
func (e *Engine) Finish(ctx context.Context, chatID int64) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	phase := s.phase
	s.mu.Unlock()

	switch phase {
	case PhaseRegistering:
		return e.Cancel(ctx, chatID)
	case PhasePlaying:
		e.finalize(ctx, s)
		return nil
	default:
		// Finalization is already in flight; idempotent.
		return nil
	}
}

// Cancel tears a session down immediately regardless of phase: timers
// stopped, session removed, standings shown without a ledger report.
func (e *Engine) Cancel(ctx context.Context, chatID int64) error {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return ErrNoSession
	}

	s.mu.Lock()
	if s.phase == PhaseClosed || s.finalizing {
		// Finalization already owns the teardown; a second notice
		// would follow the final report.
		s.mu.Unlock()
		return nil
	}
	wasPlaying := s.phase == PhasePlaying
	s.stopAllTimersLocked()
	s.phase = PhaseClosed
	standings := s.standingsLocked()
	s.mu.Unlock()

	e.sessions.Remove(chatID)

	var content Content
	if wasPlaying {
		content = cancelledContent(standings)
	} else {
		content = abortedContent()
	}
	if _, err := e.presenter.Present(ctx, chatID, content); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to present cancel notice")
	}

	log.Info().Int64("chat_id", chatID).Bool("was_playing", wasPlaying).Msg("Session cancelled")
	return nil
}

// Status returns a human-readable description of the chat's session.
func (e *Engine) Status(chatID int64) (string, error) {
	s, ok := e.sessions.Find(chatID)
	if !ok {
		return "", ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return statusText(s), nil
}

// scoreRowsLocked returns the names score rows are created for when play
// begins: team names in team mode, player handles otherwise.
func (s *Session) scoreRowsLocked() []string {
	if s.Mode == ModeTeam {
		out := make([]string, 0, len(s.teams))
		for name := range s.teams {
			out = append(out, name)
		}
		return out
	}
	out := make([]string, 0, len(s.players))
	for name := range s.players {
		out = append(out, name)
	}
	return out
}
