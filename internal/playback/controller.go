// Package playback keeps the media sink in step with broadcast
// liveness: attach on going live, full release on going offline, and a
// best-effort live-edge resync when the viewer returns to the
// foreground.
package playback

import (
	"github.com/rs/zerolog"

	"github.com/pixelcast/viewer/internal/log"
)

// PlaybackURL derives the fixed-convention delivery URL for a stream
// key on the media origin. The URL becomes playable once the backend
// marks the session live and issues the key.
func PlaybackURL(mediaOrigin, streamKey string) string {
	return mediaOrigin + "/live/" + streamKey + "/index.m3u8"
}

// Controller reacts to (isLive, streamKey) transitions. At most one
// source is ever attached; rapid live/offline flips re-sequence through
// a full release before the next attach.
type Controller struct {
	sink        Sink
	mediaOrigin string
	title       string
	logger      zerolog.Logger

	attached bool
	key      string
	closed   bool
}

func NewController(sink Sink, mediaOrigin, title string, logger zerolog.Logger) *Controller {
	return &Controller{
		sink:        sink,
		mediaOrigin: mediaOrigin,
		title:       title,
		logger:      logger,
	}
}

// Attached reports whether a source is currently attached.
func (c *Controller) Attached() bool { return c.attached }

// Observe applies the latest liveness pair. Called from the view's
// event loop on every poller snapshot and liveness frame.
func (c *Controller) Observe(isLive bool, streamKey string) {
	if c.closed {
		return
	}

	want := isLive && streamKey != ""
	switch {
	case want && c.attached && c.key == streamKey:
		// Steady state.
	case want:
		// Going live, or key rotated mid-broadcast: release whatever is
		// playing before the new attach so two decoders never coexist.
		c.release()
		c.attach(streamKey)
	case c.attached:
		c.release()
	}
}

// Resync seeks to the buffered live edge after the viewer regains the
// foreground. Failures are ignored: this is a correction, not a
// guarantee.
func (c *Controller) Resync() {
	if c.closed || !c.attached {
		return
	}
	if err := c.sink.SeekToLiveEdge(); err != nil {
		c.logger.Debug().Err(err).Msg("live edge resync failed")
	}
}

// Close releases the sink and makes every later call a no-op. Safe to
// call more than once.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.release()
}

func (c *Controller) attach(streamKey string) {
	url := PlaybackURL(c.mediaOrigin, streamKey)
	if err := c.sink.Attach(Source{URL: url, Title: c.title}); err != nil {
		// Decoder construction failures are non-fatal; the surface
		// stays empty until a future attach succeeds.
		c.logger.Debug().Err(err).Str(log.FieldPlayURL, url).Msg("media attach failed")
		return
	}
	c.attached = true
	c.key = streamKey
	c.logger.Info().Str(log.FieldStreamKey, streamKey).Msg("media attached")
}

func (c *Controller) release() {
	if !c.attached {
		return
	}
	c.sink.Detach()
	c.attached = false
	c.key = ""
	c.logger.Info().Msg("media released")
}
