package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

var errTrackLoadFailed = errors.New("track failed to load")

// lavalinkPlayer is the part of disgolink.Player the sink drives.
type lavalinkPlayer interface {
	Update(ctx context.Context, opts ...lavalink.PlayerUpdateOpt) error
}

// lavalinkSink is the AudioSink of one guild on a Lavalink player.
//
// Lavalink reports the end of every track, including replaced and stopped
// ones. Only ends of the track started by the latest Play call, with a reason
// that warrants notification, reach onComplete.
type lavalinkSink struct {
	guildID snowflake.ID
	player  func() lavalinkPlayer
	loader  trackLoader

	mu         sync.Mutex
	encoded    string
	onComplete ports.CompletionFunc
	playing    bool
	paused     bool
}

func newLavalinkSink(guildID snowflake.ID, player func() lavalinkPlayer, loader trackLoader) *lavalinkSink {
	return &lavalinkSink{
		guildID: guildID,
		player:  player,
		loader:  loader,
	}
}

// Play starts source on the guild player. Sources without an encoded payload
// are loaded by URL first, which is how radio streams are played.
func (s *lavalinkSink) Play(
	ctx context.Context,
	source ports.StreamSource,
	volume float64,
	onComplete ports.CompletionFunc,
) error {
	encoded := source.Encoded
	if encoded == "" {
		var err error
		encoded, err = s.loadEncoded(ctx, source.URL)
		if err != nil {
			return err
		}
	}

	// Register the new call before the update so that the end event of the
	// replaced track is not mistaken for ours and an early end is not lost.
	s.mu.Lock()
	s.encoded = encoded
	s.onComplete = onComplete
	s.playing = true
	s.paused = false
	s.mu.Unlock()

	opts := []lavalink.PlayerUpdateOpt{
		lavalink.WithEncodedTrack(encoded),
		lavalink.WithVolume(volumeToLavalink(volume)),
		lavalink.WithPaused(false),
	}
	if source.Offset > 0 {
		opts = append(opts, lavalink.WithPosition(lavalink.Duration(source.Offset.Milliseconds())))
	}

	if err := s.player().Update(ctx, opts...); err != nil {
		s.reset()
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

func (s *lavalinkSink) loadEncoded(ctx context.Context, url string) (string, error) {
	result, err := s.loader.LoadTracks(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to load stream: %w", err)
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return data.Encoded, nil
	case lavalink.Search:
		if len(data) > 0 {
			return data[0].Encoded, nil
		}
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[0].Encoded, nil
		}
	case lavalink.Exception:
		return "", fmt.Errorf("failed to load stream: %s", data.Message)
	}
	return "", fmt.Errorf("failed to load stream: %w", ports.ErrNotFound)
}

// Stop clears the player. The resulting end event is suppressed.
func (s *lavalinkSink) Stop(ctx context.Context) error {
	s.reset()

	if err := s.player().Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

func (s *lavalinkSink) Pause(ctx context.Context) error {
	if err := s.player().Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.playing = false
		s.paused = true
	}
	return nil
}

func (s *lavalinkSink) Resume(ctx context.Context) error {
	if err := s.player().Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.playing = true
	}
	return nil
}

func (s *lavalinkSink) SetVolume(ctx context.Context, volume float64) error {
	if err := s.player().Update(ctx, lavalink.WithVolume(volumeToLavalink(volume))); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

func (s *lavalinkSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *lavalinkSink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// reset forgets the current call without notifying it.
func (s *lavalinkSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encoded = ""
	s.onComplete = nil
	s.playing = false
	s.paused = false
}

// ended handles a TrackEndEvent for the given track.
func (s *lavalinkSink) ended(encoded string, reason domain.TrackEndReason) {
	if !reason.ShouldNotify() {
		return
	}

	var err error
	if reason.IsAbnormal() {
		err = fmt.Errorf("%w: %s", errTrackLoadFailed, reason)
	}
	s.abort(encoded, err)
}

// abort completes the current call with err if it is still playing encoded.
func (s *lavalinkSink) abort(encoded string, err error) {
	s.mu.Lock()
	if encoded != s.encoded || s.onComplete == nil {
		s.mu.Unlock()
		slog.Debug("ignoring end of stale track", "guild", s.guildID)
		return
	}
	onComplete := s.onComplete
	s.onComplete = nil
	s.encoded = ""
	s.playing = false
	s.paused = false
	s.mu.Unlock()

	onComplete(err)
}

// volumeToLavalink converts a multiplier into the Lavalink 0-1000 scale.
func volumeToLavalink(volume float64) int {
	return min(max(int(volume*100+0.5), 0), 1000)
}

var _ ports.AudioSink = (*lavalinkSink)(nil)
