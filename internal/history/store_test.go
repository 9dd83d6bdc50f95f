package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, &verify.Result{
		ID: "a", Target: "http://localhost:8080", Driver: "playwright",
		StartedAt: base, Duration: 1200 * time.Millisecond, Success: true,
	}))
	require.NoError(t, store.Record(ctx, &verify.Result{
		ID: "b", Target: "http://localhost:8080", Driver: "chromedp",
		StartedAt: base.Add(time.Minute), Duration: 5 * time.Second,
		FailedStep: verify.StepToast, Error: "timed out",
	}))

	t.Run("recent newest first", func(t *testing.T) {
		runs, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		assert.Equal(t, "b", runs[0].ID)
		assert.False(t, runs[0].Success)
		assert.Equal(t, verify.StepToast, runs[0].FailedStep)
		assert.Equal(t, int64(5000), runs[0].DurationMS)

		assert.Equal(t, "a", runs[1].ID)
		assert.True(t, runs[1].Success)
		assert.True(t, runs[1].StartedAt.Equal(base))
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := store.Recent(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("stats", func(t *testing.T) {
		st, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 2, Success: 1}, st)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := store.Record(ctx, &verify.Result{ID: "a", StartedAt: base})
		assert.Error(t, err)
	})
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, &verify.Result{ID: "x", StartedAt: time.Now(), Success: true}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
}

func TestStoreEmptyStats(t *testing.T) {
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}
