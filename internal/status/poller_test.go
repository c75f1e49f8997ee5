package status

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelcast/viewer/internal/api"
	"github.com/pixelcast/viewer/internal/domain"
)

// scriptFetcher returns its outcomes in order, repeating the last one.
type scriptFetcher struct {
	outcomes []func() (domain.StreamSession, error)
	calls    int
}

func (f *scriptFetcher) StreamStatus(context.Context, string) (domain.StreamSession, error) {
	i := f.calls
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	f.calls++
	return f.outcomes[i]()
}

func ok(sess domain.StreamSession) func() (domain.StreamSession, error) {
	return func() (domain.StreamSession, error) { return sess, nil }
}

func transient() (domain.StreamSession, error) {
	return domain.StreamSession{}, &api.Error{Kind: api.KindTransient}
}

func notFound() (domain.StreamSession, error) {
	return domain.StreamSession{}, &api.Error{Kind: api.KindNotFound, StatusCode: 404}
}

func collect(t *testing.T, p *Poller, n int) []Update {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan Update, 16)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, updates) }()

	var got []Update
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case u := <-updates:
			got = append(got, u)
		case <-deadline:
			t.Fatalf("collected %d of %d updates", len(got), n)
		}
	}
	cancel()
	<-done
	return got
}

func TestFirstFetchIsImmediate(t *testing.T) {
	live := domain.StreamSession{Username: "alice", IsLive: true, StreamKey: "k1"}
	f := &scriptFetcher{outcomes: []func() (domain.StreamSession, error){ok(live)}}
	p := New(f, "alice", time.Hour, zerolog.Nop())

	got := collect(t, p, 1)
	if !got[0].Session.IsLive || got[0].Session.StreamKey != "k1" {
		t.Errorf("first update = %+v", got[0])
	}
}

func TestTransientRetainsLastSnapshot(t *testing.T) {
	live := domain.StreamSession{Username: "alice", IsLive: true, StreamKey: "k1"}
	f := &scriptFetcher{outcomes: []func() (domain.StreamSession, error){
		ok(live),
		transient,
		ok(live),
	}}
	p := New(f, "alice", 5*time.Millisecond, zerolog.Nop())

	// The transient poll emits nothing, so the second update collected
	// is the next success.
	got := collect(t, p, 2)
	if !got[0].Session.IsLive || !got[1].Session.IsLive {
		t.Errorf("updates = %+v", got)
	}
	if f.calls < 3 {
		t.Errorf("fetcher called %d times, want at least 3", f.calls)
	}
}

func TestTransientBeforeFirstSuccessYieldsOffline(t *testing.T) {
	f := &scriptFetcher{outcomes: []func() (domain.StreamSession, error){transient}}
	p := New(f, "alice", time.Hour, zerolog.Nop())

	got := collect(t, p, 1)
	if got[0].NotFound {
		t.Fatal("transient reported as not found")
	}
	if got[0].Session.IsLive {
		t.Error("liveness defaulted true with no snapshot ever obtained")
	}
	if got[0].Session.Username != "alice" {
		t.Errorf("placeholder session = %+v", got[0].Session)
	}
}

func TestNotFoundIsTerminal(t *testing.T) {
	f := &scriptFetcher{outcomes: []func() (domain.StreamSession, error){notFound}}
	p := New(f, "alice", time.Millisecond, zerolog.Nop())

	updates := make(chan Update, 16)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), updates) }()

	select {
	case u := <-updates:
		if !u.NotFound {
			t.Fatalf("update = %+v, want NotFound", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller kept running after NotFound")
	}
	if f.calls != 1 {
		t.Errorf("fetcher called %d times after terminal state", f.calls)
	}
}

func TestCancelStopsUpdates(t *testing.T) {
	live := domain.StreamSession{Username: "alice", IsLive: true}
	f := &scriptFetcher{outcomes: []func() (domain.StreamSession, error){ok(live)}}
	p := New(f, "alice", time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan Update, 1024)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, updates) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	// Drain whatever was in flight; nothing new may arrive afterwards.
	time.Sleep(10 * time.Millisecond)
	n := len(updates)
	time.Sleep(20 * time.Millisecond)
	if len(updates) != n {
		t.Error("update emitted after cancellation")
	}
}
