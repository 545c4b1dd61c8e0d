package discord

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

const (
	pickCustomIDPrefix = "music_pick"
	pickTTL            = 5 * time.Minute
	pickCapacity       = 512
)

type pick struct {
	guildID snowflake.ID
	userID  snowflake.ID
	tracks  []*domain.Track
}

// SearchPicker keeps search results until the searching user picks one.
type SearchPicker struct {
	picks *expirable.LRU[string, pick]
}

// NewSearchPicker creates a SearchPicker whose offers expire after ttl.
func NewSearchPicker(ttl time.Duration) *SearchPicker {
	if ttl <= 0 {
		ttl = pickTTL
	}
	return &SearchPicker{
		picks: expirable.NewLRU[string, pick](pickCapacity, nil, ttl),
	}
}

// Offer stores tracks for userID and returns the token that redeems them.
func (p *SearchPicker) Offer(guildID, userID snowflake.ID, tracks []*domain.Track) string {
	token := uuid.NewString()
	p.picks.Add(token, pick{guildID: guildID, userID: userID, tracks: tracks})
	return token
}

// Take redeems token for the track at index. A successful take consumes the
// token; a take by another user leaves it in place.
func (p *SearchPicker) Take(token string, guildID, userID snowflake.ID, index int) (*domain.Track, error) {
	offer, ok := p.picks.Get(token)
	if !ok || offer.guildID != guildID {
		return nil, errPickExpired
	}
	if offer.userID != userID {
		return nil, errNotYourPick
	}
	if index < 0 || index >= len(offer.tracks) {
		return nil, domain.ErrIndexOutOfRange
	}

	p.picks.Remove(token)
	return offer.tracks[index], nil
}

func pickCustomID(token string) string {
	return pickCustomIDPrefix + ":" + token
}
