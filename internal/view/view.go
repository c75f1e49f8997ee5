// Package view composes the watch-page subsystems for one broadcast:
// status poller, realtime channel, poll machine, social coordinators,
// and playback controller. All state lives behind one event loop; the
// poller, the channel, and caller intents feed it, and unmounting the
// view is the single cancellation signal for everything it owns.
package view

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pixelcast/viewer/internal/api"
	"github.com/pixelcast/viewer/internal/channel"
	"github.com/pixelcast/viewer/internal/config"
	"github.com/pixelcast/viewer/internal/domain"
	"github.com/pixelcast/viewer/internal/log"
	"github.com/pixelcast/viewer/internal/playback"
	"github.com/pixelcast/viewer/internal/poll"
	"github.com/pixelcast/viewer/internal/session"
	"github.com/pixelcast/viewer/internal/social"
	"github.com/pixelcast/viewer/internal/status"
)

// ErrClosed rejects intents arriving after the view unmounted.
var ErrClosed = errors.New("view: closed")

// Snapshot is the render model pushed to the observer whenever
// broadcast, room, connection, or social state changes.
type Snapshot struct {
	Session             domain.StreamSession
	NotFound            bool
	Away                bool
	SlowMode            bool
	Viewers             []string
	ViewerCount         int
	Connection          channel.Status
	ConnectionExhausted bool
	Like                social.Value
	Subscription        social.Value
}

// Observer receives view updates. Calls happen on the event loop, in
// order; implementations should return quickly.
type Observer interface {
	ChatAppended(msg domain.ChatMessage)
	ChatDeleted(id string)
	StateChanged(s Snapshot)
	PollChanged(s poll.State)
	ActivityAdded(e domain.ActivityEntry)
	Notice(text string)
}

// SocialAPI is the slice of the REST client the view mutates through.
type SocialAPI interface {
	LikeBroadcast(ctx context.Context, username string) (api.LikeResult, error)
	Subscribe(ctx context.Context, username string) (api.SubscribeResult, error)
	Unsubscribe(ctx context.Context, username string) (api.SubscribeResult, error)
}

// HistoryAPI is the slice of the REST client used for prefill.
type HistoryAPI interface {
	ChatHistory(ctx context.Context, username string) ([]domain.ChatMessage, error)
	ActivityHistory(ctx context.Context, username string) ([]domain.ActivityEntry, error)
}

// Sender is the outbound side of the realtime channel.
type Sender interface {
	SendChat(text string) error
	SendVote(optionIndex int) error
}

type actionKind int

const (
	actionLike actionKind = iota
	actionSubscribe
)

type actionResult struct {
	kind     actionKind
	captured social.Value
	value    social.Value
	err      error
}

type call struct {
	f    func() error
	done chan error
}

// View is one mounted watch page.
type View struct {
	id     string
	cfg    *config.Config
	sess   *session.Session
	room   string
	obs    Observer
	logger zerolog.Logger

	socialAPI  SocialAPI
	historyAPI HistoryAPI
	poller     *status.Poller
	channel    *channel.Channel
	sender     Sender

	machine    *poll.Machine
	like       *social.Coordinator
	subscribe  *social.Coordinator
	controller *playback.Controller

	// Loop-owned state.
	snap     Snapshot
	messages []domain.ChatMessage

	events  chan channel.Event
	updates chan status.Update
	actions chan actionResult
	calls   chan call

	ctx    context.Context
	cancel context.CancelFunc
}

// Options bundles the collaborators for Mount. Zero fields get real
// implementations; tests substitute fakes.
type Options struct {
	Config   *config.Config
	Session  *session.Session
	Room     string
	Observer Observer
	Logger   zerolog.Logger

	Client *api.Client
	Sink   playback.Sink
	Dialer channel.Dialer

	// Overrides for tests.
	SocialAPI  SocialAPI
	HistoryAPI HistoryAPI
	StatusAPI  status.Fetcher
}

// Mount builds a view. Run starts it; Close (or cancelling Run's
// context) unmounts it.
func Mount(opts Options) *View {
	id := uuid.New().String()
	v := &View{
		id:      id,
		cfg:     opts.Config,
		sess:    opts.Session,
		room:    opts.Room,
		obs:     opts.Observer,
		logger:  opts.Logger.With().Str(log.FieldViewID, id).Logger(),
		machine: poll.NewMachine(),

		like:      social.NewCoordinator(),
		subscribe: social.NewCoordinator(),

		events:  make(chan channel.Event, 64),
		updates: make(chan status.Update, 4),
		actions: make(chan actionResult, 4),
		calls:   make(chan call),
	}

	v.socialAPI = opts.SocialAPI
	if v.socialAPI == nil {
		v.socialAPI = opts.Client
	}
	v.historyAPI = opts.HistoryAPI
	if v.historyAPI == nil {
		v.historyAPI = opts.Client
	}

	statusAPI := opts.StatusAPI
	if statusAPI == nil {
		statusAPI = opts.Client
	}
	v.poller = status.New(statusAPI, opts.Room, opts.Config.Status.PollInterval, v.logger)

	if opts.Dialer != nil {
		v.channel = channel.NewWithDialer(opts.Config.Channel, opts.Session, opts.Room, opts.Dialer, v.logger)
	} else {
		v.channel = channel.New(opts.Config.Channel, opts.Session, opts.Room, v.logger)
	}
	v.sender = v.channel

	v.controller = playback.NewController(opts.Sink, opts.Config.Playback.MediaOrigin, opts.Room, v.logger)

	v.snap.Session.Username = opts.Room
	v.ctx, v.cancel = context.WithCancel(context.Background())
	return v
}

// Run mounts the view until ctx is cancelled. It prefills history,
// starts the poller and the channel, and drives the event loop. On
// return every subsystem is torn down and no observer call is pending.
func (v *View) Run(parent context.Context) error {
	stop := context.AfterFunc(parent, v.cancel)
	defer stop()
	ctx := v.ctx
	defer v.cancel()
	defer v.controller.Close()

	v.prefill(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.poller.Run(gctx, v.updates) })
	g.Go(func() error { return v.channel.Run(gctx, v.events) })
	g.Go(func() error { return v.loop(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close unmounts the view. Idempotent; safe before or during Run.
func (v *View) Close() {
	if v.cancel != nil {
		v.cancel()
	}
}

// prefill loads recent chat and activity over REST before the live
// connection opens. Failures are tolerated; the room just starts empty.
func (v *View) prefill(ctx context.Context) {
	if msgs, err := v.historyAPI.ChatHistory(ctx, v.room); err == nil {
		for _, m := range msgs {
			v.messages = append(v.messages, m)
			v.obs.ChatAppended(m)
		}
	} else {
		v.logger.Debug().Err(err).Msg("chat history prefill failed")
	}

	if entries, err := v.historyAPI.ActivityHistory(ctx, v.room); err == nil {
		for _, e := range entries {
			v.obs.ActivityAdded(e)
		}
	} else {
		v.logger.Debug().Err(err).Msg("activity history prefill failed")
	}
}

func (v *View) loop(ctx context.Context) error {
	tick := time.NewTicker(v.cfg.Poll.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-v.updates:
			v.applyStatus(upd)
		case ev := <-v.events:
			v.applyEvent(ev)
		case <-tick.C:
			v.applyTick()
		case res := <-v.actions:
			v.applyAction(res)
		case c := <-v.calls:
			c.done <- c.f()
		}
	}
}

// invoke runs f on the event loop and returns its error. This keeps all
// state single-threaded: intents interleave with events instead of
// racing them.
func (v *View) invoke(f func() error) error {
	done := make(chan error, 1)
	select {
	case v.calls <- call{f: f, done: done}:
		return <-done
	case <-v.ctx.Done():
		return ErrClosed
	}
}

func (v *View) applyStatus(upd status.Update) {
	if upd.NotFound {
		v.snap.NotFound = true
		v.controller.Observe(false, "")
		v.obs.StateChanged(v.snapshot())
		return
	}

	v.snap.Session = upd.Session
	// The poller is the source of truth for the subscriber counter;
	// keep the engaged flag, which only settlements may move.
	v.subscribe.SetCommitted(social.Value{
		Engaged: v.subscribe.Value().Engaged,
		Count:   upd.Session.SubscriberCount,
	})

	v.controller.Observe(upd.Session.IsLive, upd.Session.StreamKey)
	v.obs.StateChanged(v.snapshot())
}

func (v *View) applyEvent(ev channel.Event) {
	switch e := ev.(type) {
	case channel.StatusChanged:
		v.snap.Connection = e.Status
		if e.Exhausted {
			v.snap.ConnectionExhausted = true
		}
		v.obs.StateChanged(v.snapshot())

	case channel.ChatAppended:
		v.messages = append(v.messages, e.Message)
		v.obs.ChatAppended(e.Message)

	case channel.MessageDeleted:
		v.deleteMessage(e.ID)
		v.obs.ChatDeleted(e.ID)

	case channel.PollStarted:
		v.machine.Start(e.Poll)
		v.obs.PollChanged(v.machine.State())

	case channel.PollVoteIncremented:
		v.machine.ApplyVote(e.OptionIndex)
		v.obs.PollChanged(v.machine.State())

	case channel.PollEnded:
		v.machine.End(e.Poll)
		v.obs.PollChanged(v.machine.State())

	case channel.LivenessChanged:
		v.snap.Session.IsLive = e.IsLive
		v.controller.Observe(e.IsLive, v.snap.Session.StreamKey)
		v.obs.StateChanged(v.snapshot())

	case channel.PresenceToggled:
		v.snap.Away = e.Away
		v.obs.StateChanged(v.snapshot())

	case channel.SlowModeChanged:
		v.snap.SlowMode = e.Enabled
		v.obs.StateChanged(v.snapshot())

	case channel.ViewerListChanged:
		v.snap.Viewers = e.Viewers
		v.snap.ViewerCount = e.Count
		v.obs.StateChanged(v.snapshot())

	case channel.ActivityReceived:
		v.obs.ActivityAdded(e.Entry)

	case channel.ServerNotice:
		v.obs.Notice(e.Text)
	}
}

func (v *View) applyTick() {
	if v.machine.Phase() != poll.PhaseActive {
		return
	}
	v.machine.Tick()
	v.obs.PollChanged(v.machine.State())
}

func (v *View) applyAction(res actionResult) {
	coord := v.like
	if res.kind == actionSubscribe {
		coord = v.subscribe
	}

	if res.err != nil {
		coord.Rollback(res.captured)
		v.notifyActionFailure(res.err)
	} else {
		coord.Commit(res.value)
	}

	v.snap.Like = v.like.Value()
	v.snap.Subscription = v.subscribe.Value()
	v.obs.StateChanged(v.snapshot())
}

func (v *View) notifyActionFailure(err error) {
	switch api.Classify(err) {
	case api.KindUnauthenticated:
		v.obs.Notice("sign in to do that")
	case api.KindDomainRejected:
		if detail := api.Detail(err); detail != "" {
			v.obs.Notice(detail)
			return
		}
		v.obs.Notice("the server declined that action")
	default:
		v.obs.Notice("something went wrong, try again")
	}
}

// SendChat sends a chat message over the realtime channel. Rejected
// locally when disconnected or unauthenticated.
func (v *View) SendChat(text string) error {
	return v.sender.SendChat(text)
}

// CastVote casts the viewer's single vote for an option of the running
// poll. The displayed tally moves only when the increment frame
// round-trips back through the channel.
func (v *View) CastVote(optionIndex int) error {
	return v.invoke(func() error {
		if err := v.machine.CheckVote(optionIndex); err != nil {
			return err
		}
		if err := v.sender.SendVote(optionIndex); err != nil {
			return err
		}
		v.machine.MarkVoted()
		v.obs.PollChanged(v.machine.State())
		return nil
	})
}

// DismissPoll clears a finished poll from the view.
func (v *View) DismissPoll() error {
	return v.invoke(func() error {
		v.machine.Dismiss()
		v.obs.PollChanged(v.machine.State())
		return nil
	})
}

// ToggleLike flips the like state optimistically and reconciles with
// the server's answer. A second toggle while one is in flight is a
// rejected no-op.
func (v *View) ToggleLike() error {
	return v.invoke(func() error {
		captured, err := v.like.Begin()
		if err != nil {
			return err
		}
		v.snap.Like = v.like.Value()
		v.obs.StateChanged(v.snapshot())

		go func() {
			res, err := v.socialAPI.LikeBroadcast(v.ctx, v.room)
			v.settle(actionResult{
				kind:     actionLike,
				captured: captured,
				value:    social.Value{Engaged: res.Liked, Count: res.LikeCount},
				err:      err,
			})
		}()
		return nil
	})
}

// ToggleSubscribe follows or unfollows the channel, optimistically.
func (v *View) ToggleSubscribe() error {
	return v.invoke(func() error {
		captured, err := v.subscribe.Begin()
		if err != nil {
			return err
		}
		v.snap.Subscription = v.subscribe.Value()
		v.obs.StateChanged(v.snapshot())

		go func() {
			var res api.SubscribeResult
			var callErr error
			if captured.Engaged {
				res, callErr = v.socialAPI.Unsubscribe(v.ctx, v.room)
			} else {
				res, callErr = v.socialAPI.Subscribe(v.ctx, v.room)
			}
			v.settle(actionResult{
				kind:     actionSubscribe,
				captured: captured,
				value:    social.Value{Engaged: res.Subscribed, Count: res.SubscriberCount},
				err:      callErr,
			})
		}()
		return nil
	})
}

// Resync nudges playback to the live edge after the viewer returns to
// the foreground.
func (v *View) Resync() {
	v.invoke(func() error {
		v.controller.Resync()
		return nil
	})
}

func (v *View) settle(res actionResult) {
	select {
	case v.actions <- res:
	case <-v.ctx.Done():
		v.logger.Debug().Str(log.FieldChannel, v.room).Msg("dropped settlement after unmount")
	}
}

func (v *View) deleteMessage(id string) {
	for i, m := range v.messages {
		if m.ID == id {
			v.messages = append(v.messages[:i], v.messages[i+1:]...)
			return
		}
	}
}

// Messages returns the chat log. Loop-owned; call via observer context
// or after Run returns.
func (v *View) Messages() []domain.ChatMessage {
	return append([]domain.ChatMessage(nil), v.messages...)
}

func (v *View) snapshot() Snapshot {
	s := v.snap
	s.Like = v.like.Value()
	s.Subscription = v.subscribe.Value()
	s.Viewers = append([]string(nil), v.snap.Viewers...)
	return s
}
