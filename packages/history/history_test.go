package history

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &Run{Suite: "smoke", Total: 4, Passed: 3, Percentage: 75, Duration: 1500 * time.Millisecond, StartedAt: base}
	second := &Run{Suite: "smoke", Total: 4, Passed: 4, Percentage: 100, BuildOK: true, StartedAt: base.Add(time.Hour)}
	other := &Run{Suite: "api", Total: 1, Passed: 0, StartedAt: base.Add(2 * time.Hour)}

	for _, r := range []*Run{first, second, other} {
		require.NoError(t, store.Record(ctx, r))
		assert.NotEmpty(t, r.ID)
	}

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.ID, all[0].ID)

	smoke, err := store.List(ctx, "smoke", 0)
	require.NoError(t, err)
	require.Len(t, smoke, 2)
	assert.Equal(t, second.ID, smoke[0].ID)
	assert.True(t, smoke[0].BuildOK)
	assert.Equal(t, first.ID, smoke[1].ID)
	assert.Equal(t, 75, smoke[1].Percentage)
	assert.Equal(t, 1500*time.Millisecond, smoke[1].Duration)
	assert.True(t, base.Equal(smoke[1].StartedAt))

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLast(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	last, err := store.Last(ctx, "smoke")
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, store.Record(ctx, &Run{Suite: "smoke", Total: 2, Passed: 1, Percentage: 50}))
	last, err = store.Last(ctx, "smoke")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.False(t, last.BuildOK)
	assert.Equal(t, 50, last.Percentage)
	assert.False(t, last.StartedAt.IsZero())
}

func TestRecord_ConcurrentWriters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Record(ctx, &Run{Suite: fmt.Sprintf("suite-%d", i), Total: 1, Passed: 1, Percentage: 100, BuildOK: true})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	runs, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, writers)
}

func TestOpen_KeepsExistingParameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open("file:" + path + "?_busy_timeout=100")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), &Run{Suite: "smoke", Total: 1}))
}
