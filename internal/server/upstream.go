package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trello-mcp/internal/tools"
	"trello-mcp/internal/trello"
)

// listingFetchTimeout bounds a shared listing fetch, which runs detached
// from the caller that started it.
const listingFetchTimeout = 30 * time.Second

// cachingUpstream memoizes board listings for a short TTL. list_boards,
// search and search_boards all start from a listing, and clients tend to
// call them back to back. Concurrent misses for the same key share one
// upstream request.
type cachingUpstream struct {
	tools.Upstream
	ttl    time.Duration
	boards *Cache[[]trello.Board]
	group  singleflight.Group

	// mu guards gen and keys. A fetch started before an invalidation
	// carries an older gen and must not repopulate the cache.
	mu   sync.Mutex
	gen  uint64
	keys map[string]struct{}
}

func newCachingUpstream(up tools.Upstream, ttl time.Duration) *cachingUpstream {
	return &cachingUpstream{
		Upstream: up,
		ttl:      ttl,
		boards:   NewCache[[]trello.Board](),
		keys:     make(map[string]struct{}),
	}
}

func (c *cachingUpstream) ListBoards(ctx context.Context) ([]trello.Board, error) {
	return c.listing(ctx, "boards:me", func(ctx context.Context) ([]trello.Board, error) {
		return c.Upstream.ListBoards(ctx)
	})
}

func (c *cachingUpstream) ListWorkspaceBoards(ctx context.Context, workspaceID string) ([]trello.Board, error) {
	return c.listing(ctx, "boards:ws:"+workspaceID, func(ctx context.Context) ([]trello.Board, error) {
		return c.Upstream.ListWorkspaceBoards(ctx, workspaceID)
	})
}

// CreateBoard invalidates every cached listing: the new board may belong
// to any of them.
func (c *cachingUpstream) CreateBoard(ctx context.Context, p trello.BoardParams) (*trello.Board, error) {
	b, err := c.Upstream.CreateBoard(ctx, p)
	if err == nil {
		c.invalidate()
	}
	return b, err
}

// invalidate drops cached listings and detaches in-flight fetches so later
// callers start a fresh one.
func (c *cachingUpstream) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.boards.Flush()
	for key := range c.keys {
		c.group.Forget(key)
	}
	clear(c.keys)
}

func (c *cachingUpstream) listing(ctx context.Context, key string, fetch func(context.Context) ([]trello.Board, error)) ([]trello.Board, error) {
	if v, ok := c.boards.Get(key); ok {
		return cloneBoards(v), nil
	}

	// Joining or starting the flight under mu keeps it paired with gen.
	// DoChan runs the fetch on its own goroutine and does not block here.
	c.mu.Lock()
	gen := c.gen
	c.keys[key] = struct{}{}

	// The shared fetch must outlive any single waiter giving up.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listingFetchTimeout)
		defer cancel()
		boards, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.boards.Set(key, boards, c.ttl)
		}
		c.mu.Unlock()
		return boards, nil
	})
	c.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneBoards(res.Val.([]trello.Board)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cloneBoards(b []trello.Board) []trello.Board {
	if b == nil {
		return nil
	}
	return append([]trello.Board(nil), b...)
}
