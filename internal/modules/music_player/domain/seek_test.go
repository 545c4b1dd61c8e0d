package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseSeekOffset(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "+30", want: 30 * time.Second},
		{input: "-15", want: -15 * time.Second},
		{input: " +5 ", want: 5 * time.Second},
		{input: "+0", want: 0},
		{input: "30", wantErr: true},
		{input: "+", wantErr: true},
		{input: "", wantErr: true},
		{input: "+1m", wantErr: true},
		{input: "--5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeekOffset(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadFormat) {
					t.Fatalf("expected ErrBadFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSeekTarget_UnknownDuration(t *testing.T) {
	got, err := SeekTarget(10*time.Second, time.Hour, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != time.Hour+10*time.Second {
		t.Errorf("expected unbounded target, got %v", got)
	}
}
