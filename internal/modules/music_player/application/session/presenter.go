package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// DefaultPresenterInterval is how often a "Now Playing" panel is refreshed.
const DefaultPresenterInterval = 15 * time.Second

// SnapshotFunc returns the panel to edit and its content, or false once the
// presenter should stop.
type SnapshotFunc func(ctx context.Context) (domain.NowPlayingMessage, domain.NowPlayingSnapshot, bool)

// Presenter periodically edits a "Now Playing" panel in place.
// It stops silently on the first edit failure or when the snapshot reports false.
type Presenter struct {
	ui       ports.NowPlayingSink
	interval time.Duration
	snapshot SnapshotFunc

	cancel  context.CancelFunc
	refresh chan struct{}
	done    chan struct{}
}

// NewPresenter creates a stopped presenter.
func NewPresenter(ui ports.NowPlayingSink, interval time.Duration, snapshot SnapshotFunc) *Presenter {
	if interval <= 0 {
		interval = DefaultPresenterInterval
	}
	return &Presenter{
		ui:       ui,
		interval: interval,
		snapshot: snapshot,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the refresh goroutine. It must be called at most once.
func (p *Presenter) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	go p.run(ctx)
}

// Stop cancels the refresh goroutine without waiting for it.
func (p *Presenter) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Refresh asks for an immediate edit. Requests made while one is pending are merged.
func (p *Presenter) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Alive returns true until the refresh goroutine has returned.
func (p *Presenter) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed once the refresh goroutine has returned.
func (p *Presenter) Done() <-chan struct{} {
	return p.done
}

func (p *Presenter) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.refresh:
		}

		if !p.tick(ctx) {
			return
		}
	}
}

func (p *Presenter) tick(ctx context.Context) bool {
	message, snapshot, ok := p.snapshot(ctx)
	if !ok {
		return false
	}

	if err := p.ui.EditNowPlaying(ctx, message, snapshot); err != nil {
		if ctx.Err() == nil {
			slog.Debug("now playing edit failed, stopping presenter",
				"channel", message.ChannelID,
				"message", message.MessageID,
				"error", err,
			)
		}
		return false
	}
	return true
}
