package channel

import (
	"testing"
)

func TestParseFrameDispatch(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, ev Event)
	}{
		{
			name: "message deleted",
			raw:  `{"type":"message_deleted","msg_id":"msg-42"}`,
			check: func(t *testing.T, ev Event) {
				if e, ok := ev.(MessageDeleted); !ok || e.ID != "msg-42" {
					t.Errorf("got %#v", ev)
				}
			},
		},
		{
			name: "poll start",
			raw:  `{"type":"POLL_START","data":{"question":"A or B?","options":[{"text":"A","votes":0},{"text":"B","votes":0}],"duration":60}}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(PollStarted)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if e.Poll.Question != "A or B?" || len(e.Poll.Options) != 2 || e.Poll.Duration != 60 {
					t.Errorf("payload %+v", e.Poll)
				}
			},
		},
		{
			name: "poll update replays as start",
			raw:  `{"type":"poll_update","question":"A or B?","options":[{"text":"A","votes":3}],"duration":60}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(PollStarted)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if e.Poll.Options[0].Votes != 3 {
					t.Errorf("snapshot tally lost: %+v", e.Poll)
				}
			},
		},
		{
			name: "vote increment",
			raw:  `{"type":"POLL_VOTE","optionIndex":1}`,
			check: func(t *testing.T, ev Event) {
				if e, ok := ev.(PollVoteIncremented); !ok || e.OptionIndex != 1 {
					t.Errorf("got %#v", ev)
				}
			},
		},
		{
			name: "poll end",
			raw:  `{"type":"POLL_END","data":{"question":"A or B?","options":[{"text":"A","votes":5},{"text":"B","votes":2}],"duration":60}}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(PollEnded)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if e.Poll.Options[0].Votes != 5 {
					t.Errorf("final tally lost: %+v", e.Poll)
				}
			},
		},
		{
			name: "system message",
			raw:  `{"type":"system","id":"sys-1","user":"System","text":"connected","isMod":true}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(ChatAppended)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if e.Message.Kind != "system" {
					t.Errorf("kind = %q", e.Message.Kind)
				}
			},
		},
		{
			name: "brb",
			raw:  `{"type":"brb","enabled":true}`,
			check: func(t *testing.T, ev Event) {
				if e, ok := ev.(PresenceToggled); !ok || !e.Away {
					t.Errorf("got %#v", ev)
				}
			},
		},
		{
			name: "slow mode",
			raw:  `{"type":"slow_mode","enabled":true}`,
			check: func(t *testing.T, ev Event) {
				if e, ok := ev.(SlowModeChanged); !ok || !e.Enabled {
					t.Errorf("got %#v", ev)
				}
			},
		},
		{
			name: "viewer list",
			raw:  `{"type":"viewer_list","viewers":["bob","carol"],"count":2}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(ViewerListChanged)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if e.Count != 2 || len(e.Viewers) != 2 {
					t.Errorf("roster %+v", e)
				}
			},
		},
		{
			name: "activity",
			raw:  `{"type":"activity","activity_type":"subscribe","user":"bob","timestamp":1700000000000}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(ActivityReceived)
				if !ok {
					t.Fatalf("got %T", ev)
				}
				if e.Entry.Type != "subscribe" || e.Entry.User != "bob" {
					t.Errorf("entry %+v", e.Entry)
				}
			},
		},
		{
			name: "server error frame",
			raw:  `{"type":"error","text":"Login required to vote"}`,
			check: func(t *testing.T, ev Event) {
				if e, ok := ev.(ServerNotice); !ok || e.Text != "Login required to vote" {
					t.Errorf("got %#v", ev)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := parseFrame([]byte(tt.raw))
			if !ok {
				t.Fatal("frame dropped")
			}
			tt.check(t, ev)
		})
	}
}

func TestParseFrameDrops(t *testing.T) {
	drops := []string{
		``,
		`not json`,
		`{"type":"wholly_unknown"}`,
		`{"type":"POLL_VOTE","optionIndex":"one"}`,
		`42`,
	}
	for _, raw := range drops {
		if ev, ok := parseFrame([]byte(raw)); ok {
			t.Errorf("frame %q parsed to %#v, want drop", raw, ev)
		}
	}
}
