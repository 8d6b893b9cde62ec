package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	type record struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, s.SetWithExpiry(ctx, "r:1", record{ID: "1", Name: "acme"}, 0))

	var got record
	require.NoError(t, s.Get(ctx, "r:1", &got))
	assert.Equal(t, "acme", got.Name)
}

func TestGetMissingKey(t *testing.T) {
	s := NewMemoryStore()
	var out map[string]any
	err := s.Get(context.Background(), "nope", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, s.SetWithExpiry(ctx, "k", "v", time.Minute))

	var v string
	require.NoError(t, s.Get(ctx, "k", &v))

	now = now.Add(2 * time.Minute)
	err := s.Get(ctx, "k", &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAppendAndRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, s.ListAppend(ctx, "log", v))
	}

	all, err := s.ListRange(ctx, "log", 0, -1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, `"a"`, string(all[0]))
	assert.Equal(t, `"c"`, string(all[2]))

	tail, err := s.ListRange(ctx, "log", -2, -1)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, `"b"`, string(tail[0]))
}

func TestReverseIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.ReverseIndexSet(ctx, "tollfree:+18005550100", "tenant-1"))

	id, err := s.ReverseIndexGet(ctx, "tollfree:+18005550100")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)

	_, err = s.ReverseIndexGet(ctx, "tollfree:+18005550199")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReverseIndexSetNX(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	claimed, err := s.ReverseIndexSetNX(ctx, "tollfree:+18005550100", "tenant-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ReverseIndexSetNX(ctx, "tollfree:+18005550100", "tenant-2")
	require.NoError(t, err)
	assert.False(t, claimed)

	// The loser must not have overwritten the winner's mapping.
	id, err := s.ReverseIndexGet(ctx, "tollfree:+18005550100")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)
}

// TestReverseIndexSetNXConcurrent races many claimants at one index key
// and verifies exactly one wins.
func TestReverseIndexSetNXConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 32

	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			claimed, err := s.ReverseIndexSetNX(ctx, "tollfree:+18005550100", fmt.Sprintf("tenant-%d", n))
			if err != nil {
				t.Error(err)
				return
			}
			wins <- claimed
		}(i)
	}
	wg.Wait()
	close(wins)

	won := 0
	for claimed := range wins {
		if claimed {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestClaimSlotCeiling(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, n, err := s.ClaimSlot(ctx, "agent_calls:a1", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	ok, n, err = s.ClaimSlot(ctx, "agent_calls:a1", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	ok, n, err = s.ClaimSlot(ctx, "agent_calls:a1", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, n)

	require.NoError(t, s.ReleaseSlot(ctx, "agent_calls:a1"))
	ok, _, err = s.ClaimSlot(ctx, "agent_calls:a1", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestClaimSlotConcurrent drives many goroutines at one slot ceiling and
// verifies no over-assignment sneaks through the check-then-increment.
func TestClaimSlotConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 64
	const max = 5

	var wg sync.WaitGroup
	claims := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := s.ClaimSlot(ctx, "agent_calls:busy", max)
			if err != nil {
				t.Error(err)
				return
			}
			claims <- ok
		}()
	}
	wg.Wait()
	close(claims)

	granted := 0
	for ok := range claims {
		if ok {
			granted++
		}
	}
	assert.Equal(t, max, granted)
}
