package session

import (
	"context"
	"errors"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Factory builds the session of a guild on first use.
type Factory func(ctx context.Context, guildID snowflake.ID) (*Session, error)

// Registry maps guilds to their playback sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
	factory  Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[snowflake.ID]*Session),
		factory:  factory,
	}
}

// Get returns the session of the guild, creating it if needed.
func (r *Registry) Get(ctx context.Context, guildID snowflake.ID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s, nil
	}

	s, err := r.factory(ctx, guildID)
	if err != nil {
		return nil, err
	}
	r.sessions[guildID] = s
	return s, nil
}

// Lookup returns the session of the guild without creating one.
func (r *Registry) Lookup(guildID snowflake.ID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	return s, ok
}

// Remove closes and forgets the session of the guild. Removing an unknown
// guild is a no-op.
func (r *Registry) Remove(ctx context.Context, guildID snowflake.ID) error {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// Close closes every session.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[snowflake.ID]*Session)
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
