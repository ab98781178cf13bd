package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trello-mcp/internal/trello"
	"trello-mcp/internal/trello/trellotest"
)

// heldListing blocks its first ListBoards after the snapshot is taken,
// until release is closed.
type heldListing struct {
	*trellotest.Fake
	held     atomic.Bool
	snapshot chan struct{}
	release  chan struct{}
}

func newHeldListing(fake *trellotest.Fake) *heldListing {
	return &heldListing{Fake: fake, snapshot: make(chan struct{}), release: make(chan struct{})}
}

func (h *heldListing) ListBoards(ctx context.Context) ([]trello.Board, error) {
	boards, err := h.Fake.ListBoards(ctx)
	if h.held.CompareAndSwap(false, true) {
		close(h.snapshot)
		<-h.release
	}
	return boards, err
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[int]()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCacheExpiredGetKeepsConcurrentSet(t *testing.T) {
	c := NewCache[int]()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.Set("a", 1, time.Minute)

	// The clock read that finds "a" expired happens outside the lock;
	// a writer refreshes the key right then.
	var refreshed bool
	c.now = func() time.Time {
		if !refreshed {
			refreshed = true
			now = now.Add(2 * time.Minute)
			c.Set("a", 2, time.Minute)
		}
		return now
	}

	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCacheFlush(t *testing.T) {
	c := NewCache[string]()
	c.Set("a", "x", time.Minute)
	c.Set("b", "y", time.Minute)
	c.Flush()
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCachingUpstreamMemoizesListings(t *testing.T) {
	fake := testFake()
	up := newCachingUpstream(fake, time.Minute)

	for i := 0; i < 3; i++ {
		boards, err := up.ListBoards(context.Background())
		require.NoError(t, err)
		assert.Len(t, boards, 2)
	}
	assert.Equal(t, 1, fake.Calls("ListBoards"))

	_, err := up.ListWorkspaceBoards(context.Background(), "W1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("ListWorkspaceBoards"))
}

func TestCachingUpstreamCollapsesConcurrentMisses(t *testing.T) {
	fake := testFake().Delay("ListBoards", 50*time.Millisecond)
	up := newCachingUpstream(fake, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := up.ListBoards(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fake.Calls("ListBoards"))
}

func TestCachingUpstreamInvalidatesOnCreateBoard(t *testing.T) {
	fake := testFake()
	up := newCachingUpstream(fake, time.Minute)

	_, err := up.ListBoards(context.Background())
	require.NoError(t, err)
	_, err = up.CreateBoard(context.Background(), trello.BoardParams{Name: "New"})
	require.NoError(t, err)

	boards, err := up.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Len(t, boards, 3)
	assert.Equal(t, 2, fake.Calls("ListBoards"))
}

func TestCachingUpstreamCreateBoardDuringListing(t *testing.T) {
	fake := testFake()
	held := newHeldListing(fake)
	up := newCachingUpstream(held, time.Minute)

	done := make(chan []trello.Board, 1)
	go func() {
		boards, err := up.ListBoards(context.Background())
		assert.NoError(t, err)
		done <- boards
	}()
	<-held.snapshot

	_, err := up.CreateBoard(context.Background(), trello.BoardParams{Name: "New"})
	require.NoError(t, err)

	// A caller arriving after the create must not join the held fetch.
	boards, err := up.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Len(t, boards, 3)

	close(held.release)
	assert.Len(t, <-done, 2)

	// The pre-create snapshot must not have replaced the fresh listing.
	boards, err = up.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Len(t, boards, 3)
	assert.Equal(t, 2, fake.Calls("ListBoards"))
}

func TestCachingUpstreamReturnsCopies(t *testing.T) {
	up := newCachingUpstream(testFake(), time.Minute)

	first, err := up.ListBoards(context.Background())
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := up.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SAV Client", second[0].Name)
}

func TestCachingUpstreamWaiterHonoursContext(t *testing.T) {
	fake := testFake().Delay("ListBoards", time.Second)
	up := newCachingUpstream(fake, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := up.ListBoards(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
