package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

func staticSnapshot(calls *atomic.Int32, ok bool) SnapshotFunc {
	return func(context.Context) (domain.NowPlayingMessage, domain.NowPlayingSnapshot, bool) {
		calls.Add(1)
		message := domain.NowPlayingMessage{ChannelID: 1, MessageID: 2}
		snapshot := domain.NowPlayingSnapshot{Track: domain.Track{Title: "a", Duration: time.Minute}}
		return message, snapshot, ok
	}
}

func waitDone(t *testing.T, p *Presenter) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("presenter did not stop")
	}
}

func TestPresenter_EditsOnInterval(t *testing.T) {
	ui := &fakeUI{}
	var calls atomic.Int32
	p := NewPresenter(ui, 5*time.Millisecond, staticSnapshot(&calls, true))
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return ui.editCount() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.NowPlayingMessage{ChannelID: 1, MessageID: 2}, ui.lastEdit())
	assert.True(t, p.Alive())
}

func TestPresenter_StopsWhenSnapshotUnavailable(t *testing.T) {
	ui := &fakeUI{}
	var calls atomic.Int32
	p := NewPresenter(ui, 5*time.Millisecond, staticSnapshot(&calls, false))
	p.Start(context.Background())

	waitDone(t, p)
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, ui.editCount())
	assert.False(t, p.Alive())
}

func TestPresenter_StopsSilentlyOnEditError(t *testing.T) {
	ui := &fakeUI{editErr: errors.New("unknown message")}
	var calls atomic.Int32
	p := NewPresenter(ui, 5*time.Millisecond, staticSnapshot(&calls, true))
	p.Start(context.Background())

	waitDone(t, p)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPresenter_StopCancels(t *testing.T) {
	ui := &fakeUI{}
	var calls atomic.Int32
	p := NewPresenter(ui, time.Hour, staticSnapshot(&calls, true))
	p.Start(context.Background())

	p.Stop()
	waitDone(t, p)
	assert.Zero(t, calls.Load())
}

func TestPresenter_RefreshIsImmediate(t *testing.T) {
	ui := &fakeUI{}
	var calls atomic.Int32
	p := NewPresenter(ui, time.Hour, staticSnapshot(&calls, true))
	p.Start(context.Background())
	defer p.Stop()

	p.Refresh()
	assert.Eventually(t, func() bool { return ui.editCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPresenter_DefaultInterval(t *testing.T) {
	p := NewPresenter(&fakeUI{}, 0, nil)
	require.Equal(t, DefaultPresenterInterval, p.interval)
}
