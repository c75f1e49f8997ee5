// Package status polls broadcast metadata and liveness on a fixed
// heartbeat. It is one of the two sources of server truth for the view,
// the other being status frames on the realtime channel.
package status

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelcast/viewer/internal/api"
	"github.com/pixelcast/viewer/internal/domain"
)

// Fetcher is the slice of the REST client the poller needs.
type Fetcher interface {
	StreamStatus(ctx context.Context, username string) (domain.StreamSession, error)
}

// Update is one poll outcome. NotFound marks the terminal case where the
// channel identity does not exist; Session is the latest known snapshot
// otherwise.
type Update struct {
	Session  domain.StreamSession
	NotFound bool
}

type Poller struct {
	fetcher  Fetcher
	username string
	interval time.Duration
	logger   zerolog.Logger
}

func New(fetcher Fetcher, username string, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		username: username,
		interval: interval,
		logger:   logger,
	}
}

// Run fetches once immediately, then on every interval tick, until ctx is
// cancelled. Updates are delivered on the given channel; no send happens
// after cancellation. On NotFound the poller emits a terminal update and
// stops itself: further polling cannot change the outcome.
//
// On a transient failure the last successful snapshot is retained and no
// update is emitted, except before the first success, where a zero
// snapshot (liveness false) is published so the view has defined state.
func (p *Poller) Run(ctx context.Context, updates chan<- Update) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	obtained := false

	for {
		upd, terminal := p.poll(ctx, &obtained)
		if upd != nil {
			select {
			case updates <- *upd:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if terminal {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Poller) poll(ctx context.Context, obtained *bool) (*Update, bool) {
	sess, err := p.fetcher.StreamStatus(ctx, p.username)
	if err != nil {
		if api.IsNotFound(err) {
			p.logger.Warn().Str("channel", p.username).Msg("channel not found, stopping status poll")
			return &Update{NotFound: true}, true
		}
		p.logger.Debug().Err(err).Str("channel", p.username).Msg("status poll failed")
		if !*obtained {
			// Never had a snapshot: publish a defined offline state.
			*obtained = true
			return &Update{Session: domain.StreamSession{Username: p.username}}, false
		}
		return nil, false
	}

	*obtained = true
	return &Update{Session: sess}, false
}
