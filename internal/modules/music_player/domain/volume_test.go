package domain

import (
	"errors"
	"testing"
)

func TestVolumeFromPercent(t *testing.T) {
	tests := []struct {
		percent int
		want    float64
		wantErr bool
	}{
		{percent: 0, want: 0},
		{percent: 100, want: 1},
		{percent: 150, want: 1.5},
		{percent: 151, wantErr: true},
		{percent: 200, wantErr: true},
		{percent: -1, wantErr: true},
	}

	for _, tt := range tests {
		got, err := VolumeFromPercent(tt.percent)
		if tt.wantErr {
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("VolumeFromPercent(%d): expected ErrOutOfRange, got %v", tt.percent, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("VolumeFromPercent(%d): unexpected error %v", tt.percent, err)
		}
		if got != tt.want {
			t.Errorf("VolumeFromPercent(%d) = %v, want %v", tt.percent, got, tt.want)
		}
		if back := VolumePercent(got); back != tt.percent {
			t.Errorf("VolumePercent(%v) = %d, want %d", got, back, tt.percent)
		}
	}
}

func TestNowPlayingSnapshot_Progress(t *testing.T) {
	live := NowPlayingSnapshot{Track: Track{IsStream: true}, Elapsed: 1000}
	if live.Progress() != 0 {
		t.Errorf("expected 0 progress for live track, got %v", live.Progress())
	}

	half := NowPlayingSnapshot{Track: Track{Duration: 100}, Elapsed: 50}
	if half.Progress() != 0.5 {
		t.Errorf("expected 0.5, got %v", half.Progress())
	}

	over := NowPlayingSnapshot{Track: Track{Duration: 100}, Elapsed: 500}
	if over.Progress() != 1 {
		t.Errorf("expected progress clamped to 1, got %v", over.Progress())
	}
}
