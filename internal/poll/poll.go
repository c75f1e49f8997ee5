// Package poll is the client-side poll state machine. It performs no
// I/O: the view feeds it channel events and a one-second tick, and asks
// it to gate vote intents before they go out on the wire.
package poll

import (
	"errors"

	"github.com/pixelcast/viewer/internal/domain"
)

// Phase is the poll lifecycle position.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseActive
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseResults:
		return "results"
	default:
		return "none"
	}
}

var (
	ErrNoActivePoll  = errors.New("poll: no active poll")
	ErrAlreadyVoted  = errors.New("poll: already voted")
	ErrInvalidOption = errors.New("poll: invalid option index")
)

// State is a snapshot of the machine.
type State struct {
	Question        string
	Options         []domain.PollOption
	DurationSeconds int
	TimeLeftSeconds int
	Phase           Phase
	HasVoted        bool
}

// Machine holds at most one poll. A start while one is active replaces
// it outright; there is no merge.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	return &Machine{}
}

// State returns a copy; the options slice is cloned so callers cannot
// reach into the tally.
func (m *Machine) State() State {
	s := m.state
	s.Options = append([]domain.PollOption(nil), m.state.Options...)
	return s
}

// Phase returns the current lifecycle position.
func (m *Machine) Phase() Phase {
	return m.state.Phase
}

// Start opens a poll from a start (or late-join snapshot) frame,
// discarding whatever was there before.
func (m *Machine) Start(p domain.PollPayload) {
	m.state = State{
		Question:        p.Question,
		Options:         append([]domain.PollOption(nil), p.Options...),
		DurationSeconds: p.Duration,
		TimeLeftSeconds: p.Duration,
		Phase:           PhaseActive,
	}
}

// ApplyVote adds one round-tripped vote to the tally. Increments are
// commutative, so arrival order never needs reconciliation. Out-of-range
// or out-of-phase increments are dropped.
func (m *Machine) ApplyVote(optionIndex int) {
	if m.state.Phase != PhaseActive {
		return
	}
	if optionIndex < 0 || optionIndex >= len(m.state.Options) {
		return
	}
	m.state.Options[optionIndex].Votes++
}

// End moves an active poll to results, adopting the authoritative final
// tally when the frame carries one.
func (m *Machine) End(p domain.PollPayload) {
	switch m.state.Phase {
	case PhaseActive:
		if len(p.Options) > 0 {
			m.state.Question = p.Question
			m.state.Options = append([]domain.PollOption(nil), p.Options...)
		}
		m.state.TimeLeftSeconds = 0
		m.state.Phase = PhaseResults
	case PhaseResults:
		if len(p.Options) > 0 {
			// Authoritative end arriving after the local countdown
			// already moved us here: adopt the final tally.
			m.state.Question = p.Question
			m.state.Options = append([]domain.PollOption(nil), p.Options...)
			return
		}
		// An end with no results means the server had no poll left;
		// treat it as a dismissal.
		m.state = State{}
	}
}

// Tick decrements the countdown by one second. When it reaches zero the
// poll moves to results locally, so a stalled connection that never
// delivers the end frame cannot leave the view stuck voting. The end
// frame remains authoritative for the final tally when it does arrive.
func (m *Machine) Tick() {
	if m.state.Phase != PhaseActive {
		return
	}
	if m.state.TimeLeftSeconds > 0 {
		m.state.TimeLeftSeconds--
	}
	if m.state.TimeLeftSeconds <= 0 {
		m.state.Phase = PhaseResults
	}
}

// Dismiss clears a finished poll.
func (m *Machine) Dismiss() {
	if m.state.Phase == PhaseResults {
		m.state = State{}
	}
}

// CheckVote validates a vote intent against the local latch. The caller
// sends the outbound frame only after this passes, and confirms with
// MarkVoted once the frame is on the wire.
func (m *Machine) CheckVote(optionIndex int) error {
	if m.state.Phase != PhaseActive {
		return ErrNoActivePoll
	}
	if m.state.HasVoted {
		return ErrAlreadyVoted
	}
	if optionIndex < 0 || optionIndex >= len(m.state.Options) {
		return ErrInvalidOption
	}
	return nil
}

// MarkVoted latches the one-vote-per-poll guard. The local tally does
// not move here; it moves when the increment frame round-trips back.
func (m *Machine) MarkVoted() {
	if m.state.Phase == PhaseActive {
		m.state.HasVoted = true
	}
}
