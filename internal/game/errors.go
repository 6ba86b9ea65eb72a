package game

import "errors"

// Rejected actions surfaced to the handler layer. These are expected
// control-flow outcomes, not faults; handlers map them to user-facing
// replies and never abort the session.
var (
	ErrSessionExists   = errors.New("a session is already running in this chat")
	ErrNoSession       = errors.New("no active session in this chat")
	ErrNotRegistering  = errors.New("registration is not open")
	ErrNotPlaying      = errors.New("session is not in the playing phase")
	ErrStaleQuestion   = errors.New("question is no longer current")
	ErrAlreadyAnswered = errors.New("already answered this question")
	ErrNotRegistered   = errors.New("not registered in this session")
	ErrNotCaptain      = errors.New("only the team captain may answer")
	ErrTeamExists      = errors.New("a team with this name already exists")
	ErrNoTeam          = errors.New("no such team")
	ErrAlreadyInTeam   = errors.New("already a member of a team")
	ErrWrongMode       = errors.New("action not available in this mode")
	ErrNotTextQuestion = errors.New("current question does not take a text answer")
	ErrNoQuestions     = errors.New("no questions available")
)
