package poll

import (
	"errors"
	"testing"

	"github.com/pixelcast/viewer/internal/domain"
)

func twoOptionPoll(duration int) domain.PollPayload {
	return domain.PollPayload{
		Question: "A or B?",
		Options: []domain.PollOption{
			{Text: "A", Votes: 0},
			{Text: "B", Votes: 0},
		},
		Duration: duration,
	}
}

func TestStartOpensActivePoll(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))

	s := m.State()
	if s.Phase != PhaseActive {
		t.Fatalf("phase = %v, want active", s.Phase)
	}
	if s.TimeLeftSeconds != 60 {
		t.Errorf("time left = %d, want 60", s.TimeLeftSeconds)
	}
	if len(s.Options) != 2 {
		t.Errorf("options = %d, want 2", len(s.Options))
	}
}

func TestStartReplacesRunningPoll(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))
	m.ApplyVote(0)
	m.MarkVoted()

	next := domain.PollPayload{
		Question: "C or D?",
		Options:  []domain.PollOption{{Text: "C"}, {Text: "D"}},
		Duration: 30,
	}
	m.Start(next)

	s := m.State()
	if s.Question != "C or D?" {
		t.Errorf("question = %q, want replacement", s.Question)
	}
	if s.Options[0].Votes != 0 {
		t.Errorf("votes carried over: %d", s.Options[0].Votes)
	}
	if s.HasVoted {
		t.Error("hasVoted carried over to the new poll")
	}
	if s.TimeLeftSeconds != 30 {
		t.Errorf("time left = %d, want 30", s.TimeLeftSeconds)
	}
}

func TestLocalCountdownReachesResults(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))

	// No end frame ever arrives; sixty ticks must still land on results.
	for i := 0; i < 59; i++ {
		m.Tick()
		if m.Phase() != PhaseActive {
			t.Fatalf("phase flipped early after %d ticks", i+1)
		}
	}
	m.Tick()
	if m.Phase() != PhaseResults {
		t.Fatalf("phase = %v after full countdown, want results", m.Phase())
	}
}

func TestVoteIncrementsAreCumulative(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))

	m.ApplyVote(1)
	m.ApplyVote(1)

	s := m.State()
	if s.Options[0].Votes != 0 || s.Options[1].Votes != 2 {
		t.Errorf("votes = [%d, %d], want [0, 2]", s.Options[0].Votes, s.Options[1].Votes)
	}
}

func TestApplyVoteIgnoresBadIncrements(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))

	m.ApplyVote(-1)
	m.ApplyVote(5)

	s := m.State()
	if s.Options[0].Votes != 0 || s.Options[1].Votes != 0 {
		t.Errorf("votes moved on out-of-range increments: %+v", s.Options)
	}

	m.End(domain.PollPayload{})
	m.ApplyVote(0)
	if got := m.State().Options; len(got) > 0 && got[0].Votes != 0 {
		t.Error("vote applied outside active phase")
	}
}

func TestEndFrameWinsOverLocalTally(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))
	m.ApplyVote(0)

	final := twoOptionPoll(60)
	final.Options[0].Votes = 7
	final.Options[1].Votes = 3
	m.End(final)

	s := m.State()
	if s.Phase != PhaseResults {
		t.Fatalf("phase = %v, want results", s.Phase)
	}
	if s.Options[0].Votes != 7 || s.Options[1].Votes != 3 {
		t.Errorf("tally = %+v, want authoritative [7, 3]", s.Options)
	}
}

func TestLateEndFrameAfterLocalTimeout(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(1))
	m.Tick()
	if m.Phase() != PhaseResults {
		t.Fatal("local timeout did not reach results")
	}

	final := twoOptionPoll(1)
	final.Options[1].Votes = 4
	m.End(final)

	s := m.State()
	if s.Phase != PhaseResults {
		t.Fatalf("late authoritative end dismissed the results view")
	}
	if s.Options[1].Votes != 4 {
		t.Errorf("tally = %+v, want late authoritative tally", s.Options)
	}
}

func TestEmptyEndDismisses(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))
	m.End(twoOptionPoll(60))

	// Server has no poll left; a bare end clears the results view.
	m.End(domain.PollPayload{})
	if m.Phase() != PhaseNone {
		t.Fatalf("phase = %v, want none", m.Phase())
	}
}

func TestDismissOnlyFromResults(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))

	m.Dismiss()
	if m.Phase() != PhaseActive {
		t.Fatal("dismiss cleared an active poll")
	}

	m.End(twoOptionPoll(60))
	m.Dismiss()
	if m.Phase() != PhaseNone {
		t.Fatal("dismiss did not clear results")
	}
}

func TestCheckVoteGates(t *testing.T) {
	m := NewMachine()

	if err := m.CheckVote(0); !errors.Is(err, ErrNoActivePoll) {
		t.Errorf("vote with no poll: %v, want ErrNoActivePoll", err)
	}

	m.Start(twoOptionPoll(60))
	if err := m.CheckVote(9); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("out-of-range vote: %v, want ErrInvalidOption", err)
	}
	if err := m.CheckVote(1); err != nil {
		t.Fatalf("first vote rejected: %v", err)
	}

	m.MarkVoted()
	if err := m.CheckVote(1); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("second vote: %v, want ErrAlreadyVoted", err)
	}
}

func TestStateReturnsCopy(t *testing.T) {
	m := NewMachine()
	m.Start(twoOptionPoll(60))

	s := m.State()
	s.Options[0].Votes = 99
	if m.State().Options[0].Votes != 0 {
		t.Error("caller mutated internal tally through snapshot")
	}
}
