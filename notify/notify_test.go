package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(nil)
	a, cancelA := hub.Subscribe("emails", 1)
	b, cancelB := hub.Subscribe("emails", 1)
	other, cancelOther := hub.Subscribe("other", 1)
	defer cancelA()
	defer cancelB()
	defer cancelOther()

	assert.Equal(t, 2, hub.Publish(Event{Topic: "emails", Data: []byte("1")}))
	assert.Equal(t, "1", string((<-a).Data))
	assert.Equal(t, "1", string((<-b).Data))
	assert.Empty(t, other)
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe("t", 1)
	defer cancel()

	assert.Equal(t, 1, hub.Publish(Event{Topic: "t"}))
	assert.Equal(t, 0, hub.Publish(Event{Topic: "t"}))
	assert.Len(t, ch, 1)
}

func TestHubUnsubscribeAndClose(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe("t", 0)
	assert.Equal(t, 1, hub.Subscribers("t"))

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers("t"))

	live, _ := hub.Subscribe("t", 0)
	hub.Close()
	_, ok = <-live
	assert.False(t, ok)

	late, _ := hub.Subscribe("t", 0)
	_, ok = <-late
	assert.False(t, ok)
}

func TestFeedSkipsUnchangedSnapshots(t *testing.T) {
	hub := NewHub(nil)
	snapshots := []string{"[1]", "[1]", "[1,2]"}
	var calls atomic.Int32
	feed := &Feed{
		Hub:   hub,
		Topic: "emails",
		Snapshot: func(context.Context) ([]byte, error) {
			return []byte(snapshots[calls.Add(1)-1]), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sent := make(chan string, 3)
	done := make(chan error, 1)
	go func() {
		done <- feed.Stream(ctx, func(b []byte) error {
			sent <- string(b)
			return nil
		}, nil)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers("emails") == 1 }, time.Second, 5*time.Millisecond)
	for range snapshots {
		hub.Publish(Event{Topic: "emails"})
	}

	assert.Equal(t, "[1]", <-sent)
	assert.Equal(t, "[1,2]", <-sent)

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Empty(t, sent)
}

func TestWebSocketHandler(t *testing.T) {
	hub := NewHub(nil)
	feed := &Feed{
		Hub:      hub,
		Topic:    "emails",
		Snapshot: func(context.Context) ([]byte, error) { return []byte(`[{"id":1}]`), nil },
	}
	srv := httptest.NewServer(WebSocketHandler(feed, zap.NewNop().Sugar()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("emails") == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(Event{Topic: "emails"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `[{"id":1}]`, string(msg))
}
