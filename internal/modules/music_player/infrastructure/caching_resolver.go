package infrastructure

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"golang.org/x/sync/singleflight"
)

// Cache defaults.
const (
	DefaultResolverCacheSize = 256
	DefaultResolverCacheTTL  = 30 * time.Minute

	sharedLoadTimeout = 30 * time.Second
)

// CachingResolver memoizes another resolver. Identical lookups within the TTL
// are answered from the cache and concurrent identical lookups share one call.
// Failures are not cached.
type CachingResolver struct {
	next   ports.TrackResolver
	group  singleflight.Group
	single *expirable.LRU[string, *domain.Track]
	lists  *expirable.LRU[string, *domain.TrackList]
	search *expirable.LRU[string, []*domain.Track]
}

// NewCachingResolver wraps next with caches of the given size and TTL.
func NewCachingResolver(next ports.TrackResolver, size int, ttl time.Duration) *CachingResolver {
	if size <= 0 {
		size = DefaultResolverCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultResolverCacheTTL
	}
	return &CachingResolver{
		next:   next,
		single: expirable.NewLRU[string, *domain.Track](size, nil, ttl),
		lists:  expirable.NewLRU[string, *domain.TrackList](size, nil, ttl),
		search: expirable.NewLRU[string, []*domain.Track](size, nil, ttl),
	}
}

func (r *CachingResolver) ResolveSingle(ctx context.Context, query string) (*domain.Track, error) {
	return cached(ctx, r, r.single, "single:"+query, func(ctx context.Context) (*domain.Track, error) {
		return r.next.ResolveSingle(ctx, query)
	})
}

func (r *CachingResolver) ResolvePlaylist(ctx context.Context, url string) (*domain.TrackList, error) {
	return cached(ctx, r, r.lists, "playlist:"+url, func(ctx context.Context) (*domain.TrackList, error) {
		return r.next.ResolvePlaylist(ctx, url)
	})
}

func (r *CachingResolver) Search(ctx context.Context, query string, limit int) ([]*domain.Track, error) {
	key := "search:" + strconv.Itoa(limit) + ":" + query
	return cached(ctx, r, r.search, key, func(ctx context.Context) ([]*domain.Track, error) {
		return r.next.Search(ctx, query, limit)
	})
}

// cached looks key up in cache, or runs load once for all concurrent callers.
// The shared call is detached from the first caller's cancellation so that
// other waiters are not failed by it.
func cached[V any](
	ctx context.Context,
	r *CachingResolver,
	cache *expirable.LRU[string, V],
	key string,
	load func(context.Context) (V, error),
) (V, error) {
	if v, ok := cache.Get(key); ok {
		return v, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		cache.Add(key, v)
		return v, nil
	})

	var zero V
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(V)
		if !ok {
			return zero, errors.New("caching resolver: unexpected cached type")
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

var _ ports.TrackResolver = (*CachingResolver)(nil)
