package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isSettled(w *idleWatcher) bool {
	select {
	case <-w.settled:
		return true
	default:
		return false
	}
}

func lifecycle(frame cdp.FrameID, loader cdp.LoaderID, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{FrameID: frame, LoaderID: loader, Name: name}
}

func TestIdleWatcherIgnoresChildFramesAndOldDocuments(t *testing.T) {
	w := newIdleWatcher("main")

	// The blank document the tab opened with.
	w.observe(lifecycle("main", "blank", "networkIdle"))
	w.expect("doc")
	assert.False(t, isSettled(w))

	// An embedded player iframe settling first.
	w.observe(lifecycle("player-iframe", "doc", "networkIdle"))
	w.observe(lifecycle("player-iframe", "iframe-loader", "networkIdle"))
	assert.False(t, isSettled(w))

	w.observe(lifecycle("main", "doc", "load"))
	assert.False(t, isSettled(w))

	w.observe(lifecycle("main", "doc", "networkIdle"))
	assert.True(t, isSettled(w))
}

func TestIdleWatcherEventBeforeLoaderKnown(t *testing.T) {
	w := newIdleWatcher("main")

	w.observe(lifecycle("main", "doc", "networkIdle"))
	assert.False(t, isSettled(w))

	w.expect("doc")
	assert.True(t, isSettled(w))
}

func TestIdleWatcherSameDocumentNavigation(t *testing.T) {
	w := newIdleWatcher("main")
	w.expect("")
	assert.True(t, isSettled(w))
}

func TestSettle(t *testing.T) {
	require.NoError(t, settle(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := settle(ctx, func() { <-ctx.Done() })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "network idle")
}
