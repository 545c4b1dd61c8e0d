package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

var errTrackStuck = errors.New("track stuck")

// voiceHandshake collects the VoiceStateUpdate and VoiceServerUpdate halves of
// a voice connection. Lavalink rejects partial voice state, so neither half is
// forwarded until both have arrived.
type voiceHandshake struct {
	mu sync.Mutex

	haveState bool
	channelID *snowflake.ID
	sessionID string

	haveServer bool
	token      string
	endpoint   string

	ready chan struct{} // closed once both halves arrived; nil when nobody waits
}

// state records the voice state half and reports whether the handshake is complete.
func (h *voiceHandshake) state(channelID *snowflake.ID, sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.haveState = true
	h.channelID = channelID
	h.sessionID = sessionID
	return h.completeLocked()
}

// server records the voice server half and reports whether the handshake is complete.
func (h *voiceHandshake) server(token, endpoint string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.haveServer = true
	h.token = token
	h.endpoint = endpoint
	return h.completeLocked()
}

func (h *voiceHandshake) completeLocked() bool {
	if !h.haveState || !h.haveServer {
		return false
	}
	if h.ready != nil {
		select {
		case <-h.ready:
		default:
			close(h.ready)
		}
	}
	return true
}

// wait arms the handshake for a new join and returns the channel to wait on.
func (h *voiceHandshake) wait() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.haveState, h.haveServer = false, false
	h.ready = make(chan struct{})
	return h.ready
}

// take returns the collected halves and resets the handshake.
func (h *voiceHandshake) take() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channelID, sessionID, token, endpoint = h.channelID, h.sessionID, h.token, h.endpoint
	h.haveState, h.haveServer = false, false
	h.channelID, h.sessionID, h.token, h.endpoint = nil, "", "", ""
	return
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// LavalinkBackend plays audio through a Lavalink node. It owns the voice
// connections of the bot and one sink per guild.
type LavalinkBackend struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	mu         sync.Mutex
	handshakes map[snowflake.ID]*voiceHandshake
	sinks      map[snowflake.ID]*lavalinkSink
}

// NewLavalinkBackend connects to the configured Lavalink node.
func NewLavalinkBackend(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkBackend, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	b := &LavalinkBackend{
		session:    session,
		botID:      botID,
		handshakes: make(map[snowflake.ID]*voiceHandshake),
		sinks:      make(map[snowflake.ID]*lavalinkSink),
	}

	b.link = disgolink.New(botID,
		disgolink.WithListenerFunc(b.onTrackStart),
		disgolink.WithListenerFunc(b.onTrackEnd),
		disgolink.WithListenerFunc(b.onTrackException),
		disgolink.WithListenerFunc(b.onTrackStuck),
		disgolink.WithListenerFunc(b.onWebSocketClosed),
	)

	node, err := b.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)
	return b, nil
}

// SinkFor returns the audio sink of the guild.
func (b *LavalinkBackend) SinkFor(guildID snowflake.ID) ports.AudioSink {
	return b.sink(guildID)
}

// Resolver returns a TrackResolver backed by the same node.
func (b *LavalinkBackend) Resolver() *LavalinkResolver {
	return NewLavalinkResolver(bestNodeLoader{link: b.link})
}

func (b *LavalinkBackend) sink(guildID snowflake.ID) *lavalinkSink {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sinks[guildID]
	if !ok {
		s = newLavalinkSink(guildID, func() lavalinkPlayer {
			return b.link.Player(guildID)
		}, bestNodeLoader{link: b.link})
		b.sinks[guildID] = s
	}
	return s
}

func (b *LavalinkBackend) existingSink(guildID snowflake.ID) *lavalinkSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sinks[guildID]
}

func (b *LavalinkBackend) handshake(guildID snowflake.ID) *voiceHandshake {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.handshakes[guildID]
	if !ok {
		h = &voiceHandshake{}
		b.handshakes[guildID] = h
	}
	return h
}

// JoinChannel connects to a voice channel.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (b *LavalinkBackend) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	ready := b.handshake(guildID).wait()

	err := b.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	timer := time.NewTimer(voiceConnectionTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-timer.C:
		return errors.New("timeout waiting for voice connection")
	}
}

// LeaveChannel destroys the guild player and disconnects from voice.
func (b *LavalinkBackend) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if s := b.existingSink(guildID); s != nil {
		s.reset()
	}

	if player := b.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
		b.link.RemovePlayer(guildID)
	}

	if err := b.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Close disconnects from every node.
func (b *LavalinkBackend) Close() error {
	b.link.Close()
	return nil
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (b *LavalinkBackend) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	h := b.handshake(guildID)
	if h.server(event.Token, event.Endpoint) {
		b.forward(guildID, h)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates of the bot.
// This must be called from the Discord event handler.
func (b *LavalinkBackend) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != b.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// Disconnects are forwarded at once; there is no server half to wait for.
	if event.ChannelID == "" {
		b.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		b.mu.Lock()
		delete(b.handshakes, guildID)
		b.mu.Unlock()
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	h := b.handshake(guildID)
	if h.state(&channelID, event.SessionID) {
		b.forward(guildID, h)
	}
}

func (b *LavalinkBackend) forward(guildID snowflake.ID, h *voiceHandshake) {
	channelID, sessionID, token, endpoint := h.take()

	slog.Debug("forwarding voice handshake to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	b.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	b.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (b *LavalinkBackend) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (b *LavalinkBackend) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	reason := convertEndReason(event.Reason)
	slog.Debug("track ended", "guild", player.GuildID(), "reason", reason)

	if s := b.existingSink(player.GuildID()); s != nil {
		s.ended(event.Track.Encoded, reason)
	}
}

func (b *LavalinkBackend) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (b *LavalinkBackend) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	if s := b.existingSink(player.GuildID()); s != nil {
		s.abort(event.Track.Encoded, errTrackStuck)
	}
}

func (b *LavalinkBackend) onWebSocketClosed(player disgolink.Player, event lavalink.WebSocketClosedEvent) {
	slog.Warn("voice websocket closed",
		"guild", player.GuildID(),
		"code", event.Code,
		"reason", event.Reason,
		"byRemote", event.ByRemote,
	)
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

var _ ports.AudioBackend = (*LavalinkBackend)(nil)
