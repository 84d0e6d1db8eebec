package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetOrFetchCoalescesConcurrentCallers(t *testing.T) {
	c := NewCache(nil, 0)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		close(started)
		<-release
		return 42, nil
	}

	const waiters = 10
	results := make([]int, waiters+1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
		require.NoError(t, err)
		results[0] = v
	}()

	<-started
	require.Equal(t, StateRefreshing, c.State("k"))

	for i := 1; i <= waiters; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
			require.NoError(t, err)
			results[i] = v
		}()
	}

	// Give the waiters a moment to attach to the in-flight fetch, then let
	// it finish.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load(), "all callers must share one upstream fetch")
	for _, v := range results {
		require.Equal(t, 42, v)
	}
	require.Equal(t, StateFresh, c.State("k"))
}

func TestGetOrFetchRespectsTTL(t *testing.T) {
	c := NewCache(nil, 0)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	var calls int
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "v", nil
	}

	_, err := GetOrFetch(context.Background(), c, "k", time.Hour, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// Within the TTL the fetch must not run again.
	current = current.Add(59 * time.Minute)
	_, err = GetOrFetch(context.Background(), c, "k", time.Hour, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, StateFresh, c.State("k"))

	// Past the TTL it must.
	current = current.Add(2 * time.Minute)
	require.Equal(t, StateStale, c.State("k"))
	_, err = GetOrFetch(context.Background(), c, "k", time.Hour, fetch)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestGetOrFetchServesStaleOnError(t *testing.T) {
	c := NewCache(nil, 0)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ok := true
	fetch := func(ctx context.Context) (string, error) {
		if ok {
			return "good", nil
		}
		return "", errors.New("upstream down")
	}

	v, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)
	require.Equal(t, "good", v)

	current = current.Add(5 * time.Minute)
	ok = false
	v, err = GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err, "stale value must mask the refresh failure")
	require.Equal(t, "good", v)
	require.Equal(t, StateStale, c.State("k"))
}

func TestGetOrFetchPropagatesErrorWithoutPriorValue(t *testing.T) {
	c := NewCache(nil, 0)
	boom := errors.New("upstream down")

	_, err := GetOrFetch(context.Background(), c, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, StateEmpty, c.State("k"))
}

func TestGetOrFetchFallsBackToSnapshotStore(t *testing.T) {
	snap := NewMemoryStore()
	require.NoError(t, snap.Set(context.Background(), snapKey("k"), []byte(`"last-good"`), 0))

	c := NewCache(snap, time.Hour)
	v, err := GetOrFetch(context.Background(), c, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "", errors.New("upstream down")
	})
	require.NoError(t, err)
	require.Equal(t, "last-good", v)
}

func TestGetOrFetchWritesThroughToSnapshotStore(t *testing.T) {
	snap := NewMemoryStore()
	c := NewCache(snap, time.Hour)

	_, err := GetOrFetch(context.Background(), c, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)

	b, ok := snap.Get(context.Background(), snapKey("k"))
	require.True(t, ok)
	require.JSONEq(t, `"fresh"`, string(b))
}

func TestExpiresAtUnknownKey(t *testing.T) {
	c := NewCache(nil, 0)
	_, ok := c.ExpiresAt("nope")
	require.False(t, ok)
}
