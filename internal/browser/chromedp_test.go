package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubRunActions(t *testing.T, fn func(ctx context.Context, actions ...chromedp.Action) error) {
	t.Helper()
	orig := runActions
	runActions = fn
	t.Cleanup(func() { runActions = orig })
}

func TestRunOwned(t *testing.T) {
	t.Run("first run is bound to the target itself", func(t *testing.T) {
		var got context.Context
		stubRunActions(t, func(ctx context.Context, actions ...chromedp.Action) error {
			got = ctx
			return nil
		})

		target, cancel := context.WithCancel(context.Background())
		defer cancel()
		callCtx, callCancel := context.WithTimeout(context.Background(), time.Minute)

		require.NoError(t, runOwned(callCtx, target, cancel, browserStartTimeout))
		assert.Same(t, target, got, "must not run on a derived context")

		// neither the caller's context ending nor the startup limit may
		// reach the browser once the call has returned
		callCancel()
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, target.Err())
	})

	t.Run("startup limit cancels the target", func(t *testing.T) {
		stubRunActions(t, func(ctx context.Context, actions ...chromedp.Action) error {
			<-ctx.Done()
			return ctx.Err()
		})

		target, cancel := context.WithCancel(context.Background())
		defer cancel()

		start := time.Now()
		err := runOwned(context.Background(), target, cancel, 30*time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("caller deadline shorter than the limit wins", func(t *testing.T) {
		stubRunActions(t, func(ctx context.Context, actions ...chromedp.Action) error {
			<-ctx.Done()
			return ctx.Err()
		})

		target, cancel := context.WithCancel(context.Background())
		defer cancel()
		callCtx, callCancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer callCancel()

		start := time.Now()
		assert.Error(t, runOwned(callCtx, target, cancel, time.Minute))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("actions are passed through", func(t *testing.T) {
		var n int
		stubRunActions(t, func(ctx context.Context, actions ...chromedp.Action) error {
			n = len(actions)
			return nil
		})

		target, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, runOwned(context.Background(), target, cancel, 0, chromedp.EmulateViewport(1280, 720)))
		assert.Equal(t, 1, n)
	})
}
