package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pixelcast/viewer/internal/channel"
	"github.com/pixelcast/viewer/internal/domain"
	"github.com/pixelcast/viewer/internal/poll"
	"github.com/pixelcast/viewer/internal/social"
	"github.com/pixelcast/viewer/internal/view"
)

// renderer is the terminal observer: one line per chat message, state
// lines on transitions, a poll block on poll changes.
type renderer struct {
	mu  sync.Mutex
	out io.Writer

	lastConn      channel.Status
	lastExhausted bool
	lastLive      bool
	lastAway      bool
	haveState     bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) ChatAppended(msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch msg.Kind {
	case domain.KindSystem:
		fmt.Fprintf(r.out, "-- %s\n", msg.Text)
	default:
		badge := ""
		if msg.IsModerator {
			badge = "[mod] "
		}
		fmt.Fprintf(r.out, "%s%s: %s\n", badge, msg.User, msg.Text)
	}
}

func (r *renderer) ChatDeleted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "-- message %s deleted\n", id)
}

func (r *renderer) StateChanged(s view.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.NotFound {
		fmt.Fprintln(r.out, "** channel not found")
		return
	}

	if !r.haveState || s.Session.IsLive != r.lastLive {
		if s.Session.IsLive {
			fmt.Fprintf(r.out, "** LIVE: %s (%s)\n", s.Session.Title, s.Session.Category)
		} else {
			fmt.Fprintln(r.out, "** offline")
		}
	}
	if s.Away != r.lastAway {
		if s.Away {
			fmt.Fprintln(r.out, "** be right back")
		} else {
			fmt.Fprintln(r.out, "** and we're back")
		}
	}
	if s.Connection != r.lastConn || s.ConnectionExhausted != r.lastExhausted {
		switch {
		case s.ConnectionExhausted:
			fmt.Fprintln(r.out, "** chat offline (reconnect budget spent)")
		case s.Connection == channel.StatusConnected:
			fmt.Fprintln(r.out, "** chat connected")
		case s.Connection == channel.StatusConnecting:
			fmt.Fprintln(r.out, "** chat connecting...")
		default:
			fmt.Fprintln(r.out, "** chat disconnected")
		}
	}

	r.lastConn = s.Connection
	r.lastExhausted = s.ConnectionExhausted
	r.lastLive = s.Session.IsLive
	r.lastAway = s.Away
	r.haveState = true
}

func (r *renderer) PollChanged(s poll.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch s.Phase {
	case poll.PhaseActive:
		// Redraw only on whole-second boundaries worth showing.
		if s.TimeLeftSeconds%10 == 0 || s.TimeLeftSeconds <= 5 {
			fmt.Fprintf(r.out, "?? %s (%ds left)\n", s.Question, s.TimeLeftSeconds)
			for i, opt := range s.Options {
				fmt.Fprintf(r.out, "   [%d] %s - %d\n", i, opt.Text, opt.Votes)
			}
		}
	case poll.PhaseResults:
		fmt.Fprintf(r.out, "?? results: %s\n", s.Question)
		for i, opt := range s.Options {
			fmt.Fprintf(r.out, "   [%d] %s - %d\n", i, opt.Text, opt.Votes)
		}
	}
}

func (r *renderer) ActivityAdded(e domain.ActivityEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "++ %s %sd\n", e.User, e.Type)
}

func (r *renderer) Notice(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "!! %s\n", text)
}

func (r *renderer) Recommendations(videos []domain.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "-- recommended:")
	for _, v := range videos {
		fmt.Fprintf(r.out, "   %s - %s (%d views)\n", v.Title, v.Username, v.Views)
	}
}

// readInput turns stdin lines into chat messages and slash commands:
// /vote N, /like, /sub, /dismiss.
func readInput(ctx context.Context, v *view.View, r *renderer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch {
		case strings.HasPrefix(line, "/vote "):
			var idx int
			idx, err = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/vote ")))
			if err != nil {
				r.Notice("usage: /vote <option index>")
				continue
			}
			err = v.CastVote(idx)
		case line == "/like":
			err = v.ToggleLike()
		case line == "/sub":
			err = v.ToggleSubscribe()
		case line == "/dismiss":
			err = v.DismissPoll()
		default:
			err = v.SendChat(line)
		}

		if err != nil {
			r.Notice(rejectionText(err))
		}
	}
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, channel.ErrNotConnected):
		return "not connected, message not sent"
	case errors.Is(err, channel.ErrNotAuthenticated):
		return "sign in to participate"
	case errors.Is(err, poll.ErrAlreadyVoted):
		return "you already voted"
	case errors.Is(err, poll.ErrNoActivePoll):
		return "no poll is running"
	case errors.Is(err, poll.ErrInvalidOption):
		return "no such option"
	case errors.Is(err, social.ErrPending):
		return "hold on, still working on the last one"
	case errors.Is(err, view.ErrClosed):
		return "view closed"
	default:
		return err.Error()
	}
}
