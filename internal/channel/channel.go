// Package channel maintains the reconnecting websocket connection that
// carries chat, poll, status, and presence frames for one broadcast.
package channel

import (
	"context"
	"errors"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelcast/viewer/internal/config"
	"github.com/pixelcast/viewer/internal/domain"
	"github.com/pixelcast/viewer/internal/log"
	"github.com/pixelcast/viewer/internal/session"
)

// Status is the connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Send rejections, raised locally before any network write.
var (
	ErrNotConnected     = errors.New("channel: not connected")
	ErrNotAuthenticated = errors.New("channel: not authenticated")
)

// Channel dials the per-broadcast chat endpoint and keeps it alive:
// disconnected -> connecting -> connected, and on close back to
// disconnected followed by a jittered backoff before the next attempt,
// up to MaxReconnect consecutive failures. The attempt counter resets to
// zero only on a successful open. After exhaustion the channel stays
// disconnected until the view is remounted.
type Channel struct {
	cfg    config.ChannelConfig
	sess   *session.Session
	dialer Dialer
	room   string
	logger zerolog.Logger

	mu      sync.Mutex
	status  Status
	attempt int
	conn    Conn
}

func New(cfg config.ChannelConfig, sess *session.Session, room string, logger zerolog.Logger) *Channel {
	return NewWithDialer(cfg, sess, room, gorillaDialer{}, logger)
}

// NewWithDialer injects the dial function; tests use it to count and
// fail connection attempts.
func NewWithDialer(cfg config.ChannelConfig, sess *session.Session, room string, dialer Dialer, logger zerolog.Logger) *Channel {
	return &Channel{
		cfg:    cfg,
		sess:   sess,
		dialer: dialer,
		room:   room,
		logger: logger,
	}
}

// Status returns the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Attempt returns the consecutive-failure counter.
func (c *Channel) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Run drives the connection until ctx is cancelled or the reconnect
// budget is spent. Events are delivered in arrival order on the given
// channel; no event is delivered after Run returns. On cancellation the
// attempt counter is forced to MaxReconnect so a racing scheduler can
// never arm another dial.
func (c *Channel) Run(ctx context.Context, events chan<- Event) error {
	defer c.teardown()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setStatus(StatusConnecting)
		c.emit(ctx, events, StatusChanged{Status: StatusConnecting, Attempt: c.Attempt()})

		conn, err := c.dialer.DialContext(ctx, c.buildURL())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn().Err(err).Int(log.FieldAttempt, c.Attempt()).Msg("channel dial failed")
			if exhausted := c.recordFailure(ctx, events); exhausted {
				return nil
			}
			if err := c.backoff(ctx); err != nil {
				return err
			}
			continue
		}

		c.opened(conn)
		c.emit(ctx, events, StatusChanged{Status: StatusConnected})
		c.logger.Info().Str(log.FieldChannel, c.room).Msg("channel connected")

		c.readLoop(ctx, conn, events)

		c.closeConn()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if exhausted := c.recordFailure(ctx, events); exhausted {
			return nil
		}
		if err := c.backoff(ctx); err != nil {
			return err
		}
	}
}

// readLoop pumps frames until the connection drops. A goroutine pings on
// the configured interval and closes the connection on ctx cancellation
// so a blocked read always unblocks.
func (c *Channel) readLoop(ctx context.Context, conn Conn, events chan<- Event) {
	readDone := make(chan struct{})
	defer close(readDone)

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(c.cfg.WriteWait)
				if err := conn.WriteControl(websocketPing, nil, deadline); err != nil {
					conn.Close()
					return
				}
			case <-ctx.Done():
				conn.Close()
				return
			case <-readDone:
				return
			}
		}
	}()

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ev, ok := parseFrame(data)
		if !ok {
			c.logger.Debug().Msg("dropped unparseable frame")
			continue
		}
		if !c.emit(ctx, events, ev) {
			return
		}
	}
}

// SendChat sends a chat message. Rejected locally, without a network
// write, when the connection is down or the session has no credential.
func (c *Channel) SendChat(text string) error {
	if len(text) > domain.MaxChatLength {
		text = text[:domain.MaxChatLength]
	}
	return c.send(domain.ChatSendFrame{Text: text})
}

// SendVote casts a poll vote for the given option index.
func (c *Channel) SendVote(optionIndex int) error {
	return c.send(domain.VoteSendFrame{
		Type:        domain.FrameTypePollVote,
		OptionIndex: optionIndex,
	})
}

func (c *Channel) send(frame any) error {
	c.mu.Lock()
	conn := c.conn
	status := c.status
	c.mu.Unlock()

	if status != StatusConnected || conn == nil {
		return ErrNotConnected
	}
	if !c.sess.Authenticated() {
		return ErrNotAuthenticated
	}
	return conn.WriteJSON(frame)
}

func (c *Channel) buildURL() string {
	u := c.cfg.BaseURL + "/ws/chat/" + url.PathEscape(c.room)
	// Socket handshakes cannot carry an Authorization header, so the
	// credential rides as a query parameter. No token is a valid
	// read-only connection.
	if token := c.sess.Token(); token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

func (c *Channel) opened(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.status = StatusConnected
	c.attempt = 0
	c.mu.Unlock()
}

func (c *Channel) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// recordFailure bumps the attempt counter and reports exhaustion once it
// reaches the budget. The counter never exceeds MaxReconnect.
func (c *Channel) recordFailure(ctx context.Context, events chan<- Event) bool {
	c.mu.Lock()
	if c.attempt < c.cfg.MaxReconnect {
		c.attempt++
	}
	attempt := c.attempt
	c.status = StatusDisconnected
	c.mu.Unlock()

	exhausted := attempt >= c.cfg.MaxReconnect
	c.emit(ctx, events, StatusChanged{Status: StatusDisconnected, Attempt: attempt, Exhausted: exhausted})
	if exhausted {
		c.logger.Warn().Int(log.FieldAttempt, attempt).Msg("reconnect budget spent, staying disconnected")
	}
	return exhausted
}

// backoff waits base plus bounded random jitter before the next dial, so
// many viewers dropped by the same outage do not redial in lockstep.
func (c *Channel) backoff(ctx context.Context) error {
	delay := c.cfg.ReconnectBase
	if c.cfg.ReconnectJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.cfg.ReconnectJitter)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// emit delivers an event unless the view is already unmounting.
func (c *Channel) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// teardown suppresses any further attempt and closes the live
// connection. Forcing the counter to the budget keeps the invariant "no
// connect after teardown" even if a timer fires late.
func (c *Channel) teardown() {
	c.mu.Lock()
	c.attempt = c.cfg.MaxReconnect
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
