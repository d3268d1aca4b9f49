package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegisteredClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	h.register <- c
	require.Eventually(t, func() bool { return h.ClientCount() > 0 },
		time.Second, 5*time.Millisecond)
	return c
}

func TestBroadcastReachesClient(t *testing.T) {
	h := New("test")
	go h.Run()

	c := newRegisteredClient(t, h, 4)
	h.Broadcast([]byte("frame"))

	select {
	case msg := <-c.send:
		assert.Equal(t, []byte("frame"), msg)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}
}

// A slow client must be removed without upsetting concurrent ClientCount
// readers; the fan-out holds the write lock while it mutates the client set.
func TestSlowClientDroppedDuringConcurrentCounts(t *testing.T) {
	h := New("test")
	go h.Run()

	newRegisteredClient(t, h, 1)

	stop := make(chan struct{})
	counted := make(chan struct{})
	go func() {
		defer close(counted)
		for {
			select {
			case <-stop:
				return
			default:
				h.ClientCount()
			}
		}
	}()

	// Nobody drains the send buffer, so the second frame onward overflows
	// it and the hub drops the client.
	for i := 0; i < 32; i++ {
		h.Broadcast([]byte("frame"))
	}

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
	close(stop)
	<-counted
}

func TestUnregisterRemovesClient(t *testing.T) {
	h := New("test")
	go h.Run()

	c := newRegisteredClient(t, h, 4)
	h.unregister <- c

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)

	// The send channel is closed exactly once on removal.
	_, open := <-c.send
	assert.False(t, open)
}

func TestBroadcastJSONEncodes(t *testing.T) {
	h := New("test")
	go h.Run()

	c := newRegisteredClient(t, h, 4)
	require.NoError(t, h.BroadcastJSON(map[string]int{"tick": 7}))

	select {
	case msg := <-c.send:
		assert.JSONEq(t, `{"tick":7}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}

	assert.Error(t, h.BroadcastJSON(func() {}))
}
