package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerStreamsBroadcasts(t *testing.T) {
	b := NewBroker("catalog.changed")
	srv := httptest.NewServer(b)
	defer srv.Close()

	assert.False(t, b.Broadcast([]byte(`{}`)), "nobody listening yet")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, b.Broadcast([]byte(`{"entity":"topping"}`)))

	lines := bufio.NewReader(resp.Body)
	event, err := lines.ReadString('\n')
	require.NoError(t, err)
	data, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: catalog.changed", strings.TrimSpace(event))
	assert.Equal(t, `data: {"entity":"topping"}`, strings.TrimSpace(data))

	cancel()
	assert.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBroadcastDropsForFullClient(t *testing.T) {
	b := NewBroker("x")
	ch := b.subscribe()
	for i := 0; i < clientBuffer+5; i++ {
		b.Broadcast([]byte("m"))
	}
	assert.Len(t, ch, clientBuffer)
}
