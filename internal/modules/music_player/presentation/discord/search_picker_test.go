package discord

import (
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

func pickTracks() []*domain.Track {
	return []*domain.Track{
		{Title: "First", StreamURL: "https://example.com/1"},
		{Title: "Second", StreamURL: "https://example.com/2"},
	}
}

func TestSearchPicker_Take(t *testing.T) {
	picker := NewSearchPicker(time.Minute)
	token := picker.Offer(1, 42, pickTracks())

	track, err := picker.Take(token, 1, 42, 1)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if track.Title != "Second" {
		t.Errorf("Take() = %q, want %q", track.Title, "Second")
	}

	if _, err := picker.Take(token, 1, 42, 0); !errors.Is(err, errPickExpired) {
		t.Errorf("second Take() error = %v, want %v", err, errPickExpired)
	}
}

func TestSearchPicker_TakeErrors(t *testing.T) {
	tests := []struct {
		name    string
		token   func(string) string
		guildID uint64
		userID  uint64
		index   int
		wantErr error
	}{
		{
			name:    "unknown token",
			token:   func(string) string { return "nope" },
			guildID: 1,
			userID:  42,
			wantErr: errPickExpired,
		},
		{
			name:    "other guild",
			token:   func(t string) string { return t },
			guildID: 2,
			userID:  42,
			wantErr: errPickExpired,
		},
		{
			name:    "other user",
			token:   func(t string) string { return t },
			guildID: 1,
			userID:  7,
			wantErr: errNotYourPick,
		},
		{
			name:    "index out of range",
			token:   func(t string) string { return t },
			guildID: 1,
			userID:  42,
			index:   2,
			wantErr: domain.ErrIndexOutOfRange,
		},
		{
			name:    "negative index",
			token:   func(t string) string { return t },
			guildID: 1,
			userID:  42,
			index:   -1,
			wantErr: domain.ErrIndexOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picker := NewSearchPicker(time.Minute)
			token := picker.Offer(1, 42, pickTracks())

			_, err := picker.Take(tt.token(token), snowflake.ID(tt.guildID), snowflake.ID(tt.userID), tt.index)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Take() error = %v, want %v", err, tt.wantErr)
			}

			// Failed takes leave the offer for its owner.
			if _, err := picker.Take(token, 1, 42, 0); err != nil {
				t.Errorf("owner Take() after failure error = %v", err)
			}
		})
	}
}

func TestSearchPicker_Expiry(t *testing.T) {
	picker := NewSearchPicker(20 * time.Millisecond)
	token := picker.Offer(1, 42, pickTracks())

	time.Sleep(60 * time.Millisecond)

	if _, err := picker.Take(token, 1, 42, 0); !errors.Is(err, errPickExpired) {
		t.Errorf("Take() error = %v, want %v", err, errPickExpired)
	}
}

func TestPickCustomID(t *testing.T) {
	if got := pickCustomID("abc"); got != "music_pick:abc" {
		t.Errorf("pickCustomID() = %q, want %q", got, "music_pick:abc")
	}
}
