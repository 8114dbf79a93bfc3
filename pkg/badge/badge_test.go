package badge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCore serves the three endpoints the badge touches: the seed list, the
// authoritative count, and the live stream.
type fakeCore struct {
	count  int
	frames chan [2]string
}

func newFakeCore() *fakeCore {
	return &fakeCore{frames: make(chan [2]string, 8)}
}

func (f *fakeCore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/events/updates", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("since") == "" {
			http.Error(w, "missing since", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true,"items":[{"id":"ev-1","type":"comment_report","title":"seeded","updatedAt":"2026-04-01T10:00:00Z"}]}`)
	})
	mux.HandleFunc("GET /admin/notifications/count", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"ok":true,"count":%d}`, f.count)
	})
	mux.HandleFunc("GET /live", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: hello\ndata: {\"connId\":\"c-1\",\"channels\":[\"user:rev-1\"]}\n\n")
		flusher.Flush()
		for {
			select {
			case <-r.Context().Done():
				return
			case frame := <-f.frames:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame[0], frame[1])
				flusher.Flush()
			}
		}
	})
	return mux
}

func newStartedClient(t *testing.T, core *fakeCore) *Client {
	t.Helper()
	srv := httptest.NewServer(core.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:          srv.URL,
		Token:            "test-token",
		LastVisit:        time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		ReconnectBackoff: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c.Start(ctx)
	t.Cleanup(c.Stop)
	return c
}

func TestSeedCountIsUpdatesListLength(t *testing.T) {
	core := newFakeCore()
	// The count endpoint disagrees with the list on purpose: the mount seed
	// must come from the list length, not from this endpoint.
	core.count = 9
	c := newStartedClient(t, core)

	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, c.Count())
	alerts := c.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "ev-1", alerts[0].ItemID)
	assert.Equal(t, "seeded", alerts[0].Title)
}

func TestRefreshFetchesAuthoritativeCount(t *testing.T) {
	core := newFakeCore()
	core.count = 4
	c := newStartedClient(t, core)
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, c.Count())
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 4, c.Count())
}

func TestNewFramePrepends(t *testing.T) {
	core := newFakeCore()
	c := newStartedClient(t, core)
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	core.frames <- [2]string{"notification:new", `{"id":"ev-2:1","type":"assign","itemId":"ev-2","title":"pushed","createdAt":"2026-04-01T11:00:00Z"}`}

	require.Eventually(t, func() bool {
		alerts := c.Alerts()
		return len(alerts) == 2 && alerts[0].ItemID == "ev-2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCountFrameReplacesOutright(t *testing.T) {
	core := newFakeCore()
	c := newStartedClient(t, core)
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	core.frames <- [2]string{"notification:count", `{"count":7}`}

	require.Eventually(t, func() bool { return c.Count() == 7 }, 2*time.Second, 10*time.Millisecond)
}

func TestMarkSeenZeroesOptimistically(t *testing.T) {
	core := newFakeCore()
	c := newStartedClient(t, core)
	require.Eventually(t, func() bool { return c.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	before := c.LastVisit()
	c.MarkSeen()

	assert.Zero(t, c.Count())
	assert.Empty(t, c.Alerts())
	assert.True(t, c.LastVisit().After(before))

	// A later authoritative push still overrides the optimistic zero.
	core.frames <- [2]string{"notification:count", `{"count":2}`}
	require.Eventually(t, func() bool { return c.Count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectedReflectsStreamOnly(t *testing.T) {
	core := newFakeCore()
	srv := httptest.NewServer(core.handler())

	c, err := New(Config{
		BaseURL:          srv.URL,
		Token:            "test-token",
		ReconnectBackoff: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	srv.CloseClientConnections()
	srv.Close()
	require.Eventually(t, func() bool { return !c.Connected() }, 2*time.Second, 10*time.Millisecond)
}
