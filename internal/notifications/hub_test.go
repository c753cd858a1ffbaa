package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_SignalCoalesces(t *testing.T) {
	hub := NewHub()
	w, err := hub.Watch("live:chats:user:u1")
	require.NoError(t, err)
	other, err := hub.Watch("live:chats:user:u2")
	require.NoError(t, err)

	hub.Signal("live:chats:user:u1")
	hub.Signal("live:chats:user:u1")
	hub.Signal("live:chats:user:u1")

	select {
	case <-w.C:
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-w.C:
		t.Fatal("signals should coalesce into one")
	default:
	}
	select {
	case <-other.C:
		t.Fatal("other topics are not signalled")
	default:
	}
}

func TestHub_UnwatchIsIdempotent(t *testing.T) {
	hub := NewHub()
	w, err := hub.Watch("topic")
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Watchers("topic"))

	hub.Unwatch(w)
	hub.Unwatch(w)
	hub.Unwatch(nil)
	assert.Equal(t, 0, hub.Watchers("topic"))

	hub.Signal("topic")
	select {
	case <-w.C:
		t.Fatal("unwatched watcher must not be signalled")
	default:
	}
}

func TestHub_ShutdownClosesWatchers(t *testing.T) {
	hub := NewHub()
	w, err := hub.Watch("topic")
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	_, ok := <-w.C
	assert.False(t, ok)
	hub.Unwatch(w)

	_, err = hub.Watch("topic")
	assert.ErrorIs(t, err, ErrHubClosed)
	_, err = hub.Register("u1", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_RegisterLimits(t *testing.T) {
	hub := NewHub()
	var clients []*Client
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register("u1", nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	_, err := hub.Register("u1", nil)
	assert.Error(t, err)
	assert.True(t, hub.IsOnline("u1"))

	for _, c := range clients {
		hub.UnregisterClient(c)
	}
	assert.False(t, hub.IsOnline("u1"))

	_, err = hub.Register("u1", nil)
	assert.NoError(t, err)
}

func TestClient_TrySendKeepsLatestFrame(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register("u1", nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("old")))
	}
	assert.True(t, c.TrySend([]byte("latest")))
	require.Len(t, c.Send, sendBuffer)

	var last []byte
	for len(c.Send) > 0 {
		last = <-c.Send
	}
	assert.Equal(t, "latest", string(last))

	close(c.Send)
	assert.False(t, c.TrySend([]byte("after close")))
}

func TestHub_ShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register("u1", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	select {
	case <-c.closing:
	default:
		t.Fatal("client was not told to disconnect")
	}
	assert.False(t, hub.IsOnline("u1"))
	assert.Len(t, c.Send, 0)

	c.Disconnect()
}
