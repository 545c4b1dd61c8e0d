package infrastructure

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
)

const (
	pcmChannels   = 2
	pcmFrameRate  = 48000
	pcmFrameSize  = 960 // 20ms at 48kHz
	maxOpusPacket = 1000
)

var errNoVoice = errors.New("no voice connection")

// frameEncoder encodes one PCM frame into an Opus packet. *gopus.Encoder satisfies it.
type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// pcmStream is a running decoder producing 48kHz stereo s16le PCM.
type pcmStream struct {
	io.ReadCloser
	wait func() error
}

// pcmOpener starts decoding source.
type pcmOpener func(ctx context.Context, source ports.StreamSource) (*pcmStream, error)

// opusSender delivers one Opus packet to the voice connection.
type opusSender func(ctx context.Context, packet []byte) error

// ffmpegArgs builds the ffmpeg command line for source.
func ffmpegArgs(source ports.StreamSource) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	if strings.HasPrefix(source.URL, "http://") || strings.HasPrefix(source.URL, "https://") {
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	if source.Offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(source.Offset.Seconds(), 'f', 3, 64))
	}
	return append(args,
		"-i", source.URL,
		"-f", "s16le",
		"-ar", strconv.Itoa(pcmFrameRate),
		"-ac", strconv.Itoa(pcmChannels),
		"pipe:1",
	)
}

// ffmpegOpener decodes sources with the ffmpeg binary at path.
func ffmpegOpener(path string) pcmOpener {
	return func(ctx context.Context, source ports.StreamSource) (*pcmStream, error) {
		cmd := exec.CommandContext(ctx, path, ffmpegArgs(source)...)
		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
		}
		return &pcmStream{ReadCloser: out, wait: cmd.Wait}, nil
	}
}

// ffmpegRun is one Play call.
type ffmpegRun struct {
	cancel     context.CancelFunc
	onComplete ports.CompletionFunc
	done       chan struct{}
}

// ffmpegSink decodes with ffmpeg, encodes with Opus and sends to Discord voice.
// Volume is applied to the PCM samples, so it can change mid-track.
type ffmpegSink struct {
	guildID snowflake.ID
	open    pcmOpener
	encoder func() (frameEncoder, error)
	sender  func() (opusSender, error)

	mu     sync.Mutex
	run    *ffmpegRun
	paused bool
	resume chan struct{} // closed on Resume
	volume float64
}

func newFFmpegSink(
	guildID snowflake.ID,
	open pcmOpener,
	encoder func() (frameEncoder, error),
	sender func() (opusSender, error),
) *ffmpegSink {
	return &ffmpegSink{
		guildID: guildID,
		open:    open,
		encoder: encoder,
		sender:  sender,
		volume:  1,
	}
}

func (s *ffmpegSink) Play(
	ctx context.Context,
	source ports.StreamSource,
	volume float64,
	onComplete ports.CompletionFunc,
) error {
	if source.URL == "" {
		return fmt.Errorf("%w: empty stream url", ports.ErrPlaybackStartFailed)
	}

	s.halt()

	send, err := s.sender()
	if err != nil {
		return err
	}
	encoder, err := s.encoder()
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	stream, err := s.open(runCtx, source)
	if err != nil {
		cancel()
		return err
	}

	run := &ffmpegRun{cancel: cancel, onComplete: onComplete, done: make(chan struct{})}

	s.mu.Lock()
	s.run = run
	s.paused = false
	s.volume = volume
	s.mu.Unlock()

	go s.stream(runCtx, run, stream, encoder, send)
	return nil
}

// halt ends the current run without notifying it and waits for it to exit.
func (s *ffmpegSink) halt() {
	s.mu.Lock()
	run := s.run
	s.run = nil
	s.paused = false
	if s.resume != nil {
		close(s.resume)
		s.resume = nil
	}
	s.mu.Unlock()

	if run != nil {
		run.cancel()
		<-run.done
	}
}

func (s *ffmpegSink) stream(
	ctx context.Context,
	run *ffmpegRun,
	stream *pcmStream,
	encoder frameEncoder,
	send opusSender,
) {
	err := s.pump(ctx, stream, encoder, send)
	_ = stream.Close()
	if waitErr := stream.wait(); err == nil && waitErr != nil && ctx.Err() == nil {
		err = fmt.Errorf("ffmpeg exited: %w", waitErr)
	}

	s.mu.Lock()
	current := s.run == run
	if current {
		s.run = nil
		s.paused = false
	}
	s.mu.Unlock()
	close(run.done)

	if !current || ctx.Err() != nil {
		return
	}
	if err != nil {
		slog.Warn("stream ended abnormally", "guild", s.guildID, "error", err)
	}
	run.onComplete(err)
}

// pump moves frames until the stream is exhausted or ctx is cancelled.
func (s *ffmpegSink) pump(ctx context.Context, stream *pcmStream, encoder frameEncoder, send opusSender) error {
	pcm := make([]int16, pcmFrameSize*pcmChannels)

	for {
		if err := s.waitWhilePaused(ctx); err != nil {
			return nil
		}

		if err := binary.Read(stream, binary.LittleEndian, pcm); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read pcm: %w", err)
		}

		applyVolume(pcm, s.currentVolume())

		packet, err := encoder.Encode(pcm, pcmFrameSize, maxOpusPacket)
		if err != nil {
			return fmt.Errorf("failed to encode opus: %w", err)
		}
		if err := send(ctx, packet); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *ffmpegSink) waitWhilePaused(ctx context.Context) error {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return ctx.Err()
	}
	resume := s.resume
	s.mu.Unlock()

	select {
	case <-resume:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ffmpegSink) Stop(context.Context) error {
	s.halt()
	return nil
}

func (s *ffmpegSink) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil || s.paused {
		return nil
	}
	s.paused = true
	s.resume = make(chan struct{})
	return nil
}

func (s *ffmpegSink) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return nil
	}
	s.paused = false
	close(s.resume)
	s.resume = nil
	return nil
}

func (s *ffmpegSink) SetVolume(_ context.Context, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
	return nil
}

func (s *ffmpegSink) currentVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *ffmpegSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil && !s.paused
}

func (s *ffmpegSink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil && s.paused
}

// applyVolume scales samples in place, clipping to the int16 range.
func applyVolume(pcm []int16, volume float64) {
	if volume == 1 {
		return
	}
	for i, sample := range pcm {
		v := float64(sample) * volume
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		pcm[i] = int16(v)
	}
}

var _ ports.AudioSink = (*ffmpegSink)(nil)
