package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerState is the playback state of one guild. It holds no references to
// audio or chat backends; callers apply its decisions to those themselves.
// PlayerState is not safe for concurrent use.
type PlayerState struct {
	guildID               snowflake.ID
	voiceChannelID        snowflake.ID // Voice channel the bot is connected to
	notificationChannelID snowflake.ID // Text channel for notifications
	nowPlayingMessage     *NowPlayingMessage

	queue   Queue
	current *Track
	mode    PlaybackMode

	isPaused  bool
	isLooping bool
	isSeeking bool

	startedAt     time.Time     // now - startedAt is the elapsed position while playing
	pausedElapsed time.Duration // frozen position while paused

	volume     float64
	generation uint64
}

// NewPlayerState creates an idle PlayerState for the given guild.
func NewPlayerState(guildID snowflake.ID, volume float64) *PlayerState {
	return &PlayerState{
		guildID: guildID,
		queue:   NewQueue(),
		mode:    ModeIdle,
		volume:  volume,
	}
}

// GetGuildID returns the guild ID.
func (p *PlayerState) GetGuildID() snowflake.ID {
	return p.guildID
}

// GetVoiceChannelID returns the current voice channel ID, or 0 when disconnected.
func (p *PlayerState) GetVoiceChannelID() snowflake.ID {
	return p.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (p *PlayerState) SetVoiceChannelID(channelID snowflake.ID) {
	p.voiceChannelID = channelID
}

// GetNotificationChannelID returns the text channel notifications go to.
func (p *PlayerState) GetNotificationChannelID() snowflake.ID {
	return p.notificationChannelID
}

// SetNotificationChannelID updates the notification channel ID.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	p.notificationChannelID = channelID
}

// GetNowPlayingMessage returns a copy of the "Now Playing" message handle.
func (p *PlayerState) GetNowPlayingMessage() *NowPlayingMessage {
	if p.nowPlayingMessage == nil {
		return nil
	}
	m := *p.nowPlayingMessage
	return &m
}

// SetNowPlayingMessage stores the "Now Playing" message handle.
func (p *PlayerState) SetNowPlayingMessage(message NowPlayingMessage) {
	p.nowPlayingMessage = &message
}

// ClearNowPlayingMessage forgets the "Now Playing" message handle.
func (p *PlayerState) ClearNowPlayingMessage() {
	p.nowPlayingMessage = nil
}

// Current returns the playing track, or nil.
func (p *PlayerState) Current() *Track {
	return p.current
}

// Mode returns the playback mode.
func (p *PlayerState) Mode() PlaybackMode {
	return p.mode
}

// IsPaused returns true if playback is paused.
func (p *PlayerState) IsPaused() bool {
	return p.isPaused
}

// IsLooping returns true if the current track repeats.
func (p *PlayerState) IsLooping() bool {
	return p.isLooping
}

// IsSeeking returns true while a seek restart owns the audio sink.
func (p *PlayerState) IsSeeking() bool {
	return p.isSeeking
}

// Volume returns the playback multiplier.
func (p *PlayerState) Volume() float64 {
	return p.volume
}

// Generation identifies the current play call. Every transition, seek, stop
// or radio switch increments it, so a completion carrying an older value is stale.
func (p *PlayerState) Generation() uint64 {
	return p.generation
}

// Invalidate marks every outstanding completion as stale.
func (p *PlayerState) Invalidate() uint64 {
	p.generation++
	return p.generation
}

// Queue returns a copy of the upcoming tracks.
func (p *PlayerState) Queue() []*Track {
	return p.queue.List()
}

// QueueLen returns the number of upcoming tracks.
func (p *PlayerState) QueueLen() int {
	return p.queue.Len()
}

// QueueDuration returns the summed duration of upcoming tracks.
func (p *PlayerState) QueueDuration() time.Duration {
	return p.queue.TotalDuration()
}

// Enqueue appends tracks to the queue and returns the 1-based position of
// the first one. It fails with ErrModeConflict while radio mode is active.
func (p *PlayerState) Enqueue(tracks ...*Track) (int, error) {
	if !p.mode.AllowsQueuing() {
		return 0, ErrModeConflict
	}

	position := p.queue.Append(tracks...)
	if p.mode == ModeIdle {
		p.mode = ModeQueued
	}
	return position, nil
}

// NextTrack selects what plays next. A looping session re-selects the current
// track and reports repeat=true. Otherwise the queue head is popped. When the
// queue is exhausted the state becomes idle and NextTrack returns nil.
func (p *PlayerState) NextTrack() (track *Track, repeat bool) {
	if p.isLooping && p.current != nil {
		return p.current, true
	}

	if next := p.queue.Pop(); next != nil {
		return next, false
	}

	p.current = nil
	p.mode = ModeIdle
	p.isPaused = false
	p.isSeeking = false
	return nil, false
}

// Begin makes track the current one, starting its position at zero, and
// returns the generation of the play call that follows.
func (p *PlayerState) Begin(track *Track, now time.Time) uint64 {
	p.current = track
	p.mode = ModeQueued
	p.isPaused = false
	p.startedAt = now
	p.pausedElapsed = 0
	return p.Invalidate()
}

// DropCurrent forgets the current track so the next selection skips it even
// when looping.
func (p *PlayerState) DropCurrent() {
	p.current = nil
	p.isPaused = false
	p.isSeeking = false
	if p.queue.IsEmpty() && p.mode == ModeQueued {
		p.mode = ModeIdle
	}
}

// Elapsed returns the playback position of the current track at now.
// While paused it returns the position frozen at pause time.
func (p *PlayerState) Elapsed(now time.Time) time.Duration {
	if p.current == nil {
		return 0
	}
	if p.isPaused {
		return p.pausedElapsed
	}
	return max(0, now.Sub(p.startedAt))
}

// SeekTarget computes the absolute position a relative seek would reach,
// without changing any state.
func (p *PlayerState) SeekTarget(delta time.Duration, now time.Time) (time.Duration, error) {
	if p.current == nil {
		return 0, ErrNothingPlaying
	}
	return SeekTarget(p.Elapsed(now), delta, p.current.Duration)
}

// BeginSeek moves the current position to position and raises the seeking
// guard. It returns the generation of the restarted play call.
func (p *PlayerState) BeginSeek(position time.Duration, now time.Time) uint64 {
	p.isSeeking = true
	p.startedAt = now.Add(-position)
	p.pausedElapsed = 0
	return p.Invalidate()
}

// EndSeek lowers the seeking guard.
func (p *PlayerState) EndSeek() {
	p.isSeeking = false
}

// Pause freezes the elapsed position. Without a current track it does nothing.
func (p *PlayerState) Pause(now time.Time) {
	if p.isPaused || p.current == nil {
		return
	}
	p.pausedElapsed = p.Elapsed(now)
	p.isPaused = true
}

// Resume continues counting from the frozen position.
func (p *PlayerState) Resume(now time.Time) {
	if !p.isPaused {
		return
	}
	p.startedAt = now.Add(-p.pausedElapsed)
	p.isPaused = false
}

// ToggleLoop flips the loop flag and returns the new value.
func (p *PlayerState) ToggleLoop() bool {
	p.isLooping = !p.isLooping
	return p.isLooping
}

// EnterRadio clears queue, current track and message handle, and switches to
// radio mode. It returns the generation of the radio play call.
func (p *PlayerState) EnterRadio() uint64 {
	p.queue.Clear()
	p.current = nil
	p.nowPlayingMessage = nil
	p.mode = ModeRadio
	p.isLooping = false
	p.isPaused = false
	p.isSeeking = false
	return p.Invalidate()
}

// Reset returns the state to idle, keeping only guild identity, channels and volume.
func (p *PlayerState) Reset() {
	p.queue.Clear()
	p.current = nil
	p.nowPlayingMessage = nil
	p.mode = ModeIdle
	p.isLooping = false
	p.isPaused = false
	p.isSeeking = false
	p.pausedElapsed = 0
	p.Invalidate()
}

// Remove removes upcoming tracks. The argument is either "all" or a 1-based
// queue position. It returns the removed tracks.
func (p *PlayerState) Remove(arg string) ([]*Track, error) {
	if p.queue.IsEmpty() {
		return nil, ErrEmptyQueue
	}

	arg = strings.TrimSpace(arg)
	if strings.EqualFold(arg, "all") {
		removed := p.queue.List()
		p.queue.Clear()
		return removed, nil
	}

	position, err := strconv.Atoi(arg)
	if err != nil {
		return nil, ErrBadFormat
	}

	removed := p.queue.RemoveAt(position - 1)
	if removed == nil {
		return nil, ErrIndexOutOfRange
	}
	return []*Track{removed}, nil
}

// Shuffle randomizes the upcoming tracks.
func (p *PlayerState) Shuffle() error {
	if p.queue.IsEmpty() {
		return ErrEmptyQueue
	}
	p.queue.Shuffle()
	return nil
}

// SetVolumePercent validates and stores a new volume.
func (p *PlayerState) SetVolumePercent(percent int) error {
	volume, err := VolumeFromPercent(percent)
	if err != nil {
		return err
	}
	p.volume = volume
	return nil
}

// Snapshot returns a view of the current track at now, or false if nothing is loaded.
func (p *PlayerState) Snapshot(now time.Time) (NowPlayingSnapshot, bool) {
	if p.current == nil {
		return NowPlayingSnapshot{}, false
	}

	elapsed := p.Elapsed(now)
	if !p.current.IsLive() {
		elapsed = min(elapsed, p.current.Duration)
	}

	return NowPlayingSnapshot{
		Track:     *p.current,
		Elapsed:   elapsed,
		IsPaused:  p.isPaused,
		IsLooping: p.isLooping,
		Volume:    VolumePercent(p.volume),
	}, true
}
