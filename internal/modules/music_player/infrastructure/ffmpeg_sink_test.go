package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pcmFrameBytes = pcmFrameSize * pcmChannels * 2

type passthroughEncoder struct{}

func (passthroughEncoder) Encode(pcm []int16, _, _ int) ([]byte, error) {
	return []byte{byte(pcm[0])}, nil
}

// endlessPCM is a decoder output that never runs out.
type endlessPCM struct{ closed atomic.Bool }

func (r *endlessPCM) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	clear(p)
	return len(p), nil
}

func (r *endlessPCM) Close() error {
	r.closed.Store(true)
	return nil
}

type sinkHarness struct {
	sink    *ffmpegSink
	sent    atomic.Int32
	opened  []ports.StreamSource
	mu      sync.Mutex
	frames  int // frames produced by finite sources; 0 means endless
	waitErr error
}

func newSinkHarness(frames int) *sinkHarness {
	h := &sinkHarness{frames: frames}
	h.sink = newFFmpegSink(1,
		func(_ context.Context, source ports.StreamSource) (*pcmStream, error) {
			h.mu.Lock()
			h.opened = append(h.opened, source)
			h.mu.Unlock()

			if h.frames == 0 {
				return &pcmStream{ReadCloser: &endlessPCM{}, wait: func() error { return nil }}, nil
			}
			body := io.NopCloser(bytes.NewReader(make([]byte, h.frames*pcmFrameBytes)))
			return &pcmStream{ReadCloser: body, wait: func() error { return h.waitErr }}, nil
		},
		func() (frameEncoder, error) { return passthroughEncoder{}, nil },
		func() (opusSender, error) {
			return func(ctx context.Context, _ []byte) error {
				h.sent.Add(1)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
					return nil
				}
			}, nil
		},
	)
	return h
}

func TestFFmpegSink_CompletesAtEndOfStream(t *testing.T) {
	h := newSinkHarness(5)
	done := make(chan error, 1)

	err := h.sink.Play(context.Background(), ports.StreamSource{URL: "https://example.com/a.mp3"}, 1, func(err error) {
		done <- err
	})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("completion not delivered")
	}
	assert.EqualValues(t, 5, h.sent.Load())
	assert.False(t, h.sink.IsPlaying())
}

func TestFFmpegSink_ReportsDecoderFailure(t *testing.T) {
	h := newSinkHarness(1)
	h.waitErr = errors.New("exit status 1")
	done := make(chan error, 1)

	require.NoError(t, h.sink.Play(context.Background(), ports.StreamSource{URL: "https://example.com/a.mp3"}, 1, func(err error) {
		done <- err
	}))

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "exit status 1")
	case <-time.After(time.Second):
		t.Fatal("completion not delivered")
	}
}

func TestFFmpegSink_StopSuppressesCompletion(t *testing.T) {
	h := newSinkHarness(0)
	var calls atomic.Int32

	require.NoError(t, h.sink.Play(context.Background(), ports.StreamSource{URL: "https://example.com/live"}, 1, func(error) {
		calls.Add(1)
	}))
	require.Eventually(t, func() bool { return h.sent.Load() > 0 }, time.Second, time.Millisecond)
	assert.True(t, h.sink.IsPlaying())

	require.NoError(t, h.sink.Stop(context.Background()))
	assert.False(t, h.sink.IsPlaying())

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestFFmpegSink_ReplacingPlaySuppressesOldCompletion(t *testing.T) {
	h := newSinkHarness(0)
	var first atomic.Int32

	require.NoError(t, h.sink.Play(context.Background(), ports.StreamSource{URL: "https://example.com/a"}, 1, func(error) {
		first.Add(1)
	}))
	require.NoError(t, h.sink.Play(context.Background(), ports.StreamSource{URL: "https://example.com/b"}, 1, func(error) {}))
	t.Cleanup(func() { _ = h.sink.Stop(context.Background()) })

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, first.Load())
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Len(t, h.opened, 2)
}

func TestFFmpegSink_PauseHoldsFrames(t *testing.T) {
	h := newSinkHarness(0)
	t.Cleanup(func() { _ = h.sink.Stop(context.Background()) })

	require.NoError(t, h.sink.Play(context.Background(), ports.StreamSource{URL: "https://example.com/live"}, 1, func(error) {}))
	require.Eventually(t, func() bool { return h.sent.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, h.sink.Pause(context.Background()))
	assert.True(t, h.sink.IsPaused())

	time.Sleep(10 * time.Millisecond)
	held := h.sent.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, h.sent.Load(), held+1)

	require.NoError(t, h.sink.Resume(context.Background()))
	assert.True(t, h.sink.IsPlaying())
	require.Eventually(t, func() bool { return h.sent.Load() > held+1 }, time.Second, time.Millisecond)
}

func TestFFmpegSink_RejectsEmptyURL(t *testing.T) {
	h := newSinkHarness(1)
	err := h.sink.Play(context.Background(), ports.StreamSource{Encoded: "lavalink-only"}, 1, nil)
	assert.ErrorIs(t, err, ports.ErrPlaybackStartFailed)
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs(ports.StreamSource{URL: "https://example.com/a.mp3", Offset: 90 * time.Second})
	assert.Contains(t, args, "-reconnect")
	assert.Subset(t, args, []string{"-ss", "90.000", "-i", "https://example.com/a.mp3", "s16le", "pipe:1"})

	local := ffmpegArgs(ports.StreamSource{URL: "/music/a.flac"})
	assert.NotContains(t, local, "-reconnect")
	assert.NotContains(t, local, "-ss")
}

func TestApplyVolume(t *testing.T) {
	pcm := []int16{100, -100, 30000, -30000}

	applyVolume(pcm, 2)
	assert.Equal(t, []int16{200, -200, 32767, -32768}, pcm)

	applyVolume(pcm, 0)
	assert.Equal(t, []int16{0, 0, 0, 0}, pcm)
}
