package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"layeh.com/gopus"
)

// opusSendTimeout bounds how long a frame may wait for the voice connection.
const opusSendTimeout = time.Second

// FFmpegBackend plays audio by decoding with a local ffmpeg binary and
// sending Opus frames over discordgo voice connections.
type FFmpegBackend struct {
	session    *discordgo.Session
	ffmpegPath string

	mu    sync.Mutex
	sinks map[snowflake.ID]*ffmpegSink
}

// NewFFmpegBackend creates a backend using the ffmpeg binary at ffmpegPath.
func NewFFmpegBackend(session *discordgo.Session, ffmpegPath string) *FFmpegBackend {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegBackend{
		session:    session,
		ffmpegPath: ffmpegPath,
		sinks:      make(map[snowflake.ID]*ffmpegSink),
	}
}

// SinkFor returns the audio sink of the guild.
func (b *FFmpegBackend) SinkFor(guildID snowflake.ID) ports.AudioSink {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sinks[guildID]
	if !ok {
		s = newFFmpegSink(guildID, ffmpegOpener(b.ffmpegPath), newOpusEncoder, func() (opusSender, error) {
			return b.sender(guildID)
		})
		b.sinks[guildID] = s
	}
	return s
}

func newOpusEncoder() (frameEncoder, error) {
	encoder, err := gopus.NewEncoder(pcmFrameRate, pcmChannels, gopus.Audio)
	if err != nil {
		return nil, err
	}
	return encoder, nil
}

func (b *FFmpegBackend) voiceConnection(guildID snowflake.ID) *discordgo.VoiceConnection {
	b.session.RLock()
	defer b.session.RUnlock()
	return b.session.VoiceConnections[guildID.String()]
}

// sender returns a function writing frames to the guild voice connection.
func (b *FFmpegBackend) sender(guildID snowflake.ID) (opusSender, error) {
	vc := b.voiceConnection(guildID)
	if vc == nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrNotConnected, errNoVoice)
	}

	if err := vc.Speaking(true); err != nil {
		slog.Debug("failed to set speaking state", "guild", guildID, "error", err)
	}

	return func(ctx context.Context, packet []byte) error {
		timer := time.NewTimer(opusSendTimeout)
		defer timer.Stop()

		select {
		case vc.OpusSend <- packet:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errors.New("timeout sending opus data")
		}
	}, nil
}

// JoinChannel opens a voice connection, moving an existing one if needed.
func (b *FFmpegBackend) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	type joinResult struct {
		err error
	}

	// ChannelVoiceJoin blocks until the connection is ready or times out.
	result := make(chan joinResult, 1)
	go func() {
		_, err := b.session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
		result <- joinResult{err: err}
	}()

	select {
	case r := <-result:
		if r.err != nil {
			return fmt.Errorf("failed to join voice channel: %w", r.err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	}
}

// LeaveChannel stops playback and closes the voice connection of the guild.
func (b *FFmpegBackend) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	b.mu.Lock()
	s := b.sinks[guildID]
	b.mu.Unlock()
	if s != nil {
		_ = s.Stop(ctx)
	}

	vc := b.voiceConnection(guildID)
	if vc == nil {
		return nil
	}
	_ = vc.Speaking(false)
	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Close stops every sink and disconnects all voice connections.
func (b *FFmpegBackend) Close() error {
	b.mu.Lock()
	sinks := b.sinks
	b.sinks = make(map[snowflake.ID]*ffmpegSink)
	b.mu.Unlock()

	var errs []error
	for guildID, s := range sinks {
		_ = s.Stop(context.Background())
		if vc := b.voiceConnection(guildID); vc != nil {
			if err := vc.Disconnect(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var _ ports.AudioBackend = (*FFmpegBackend)(nil)
