package debugws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/network"
)

func TestStreamerBroadcastsFrameToConnectedClient(t *testing.T) {
	s := NewStreamer()

	server := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		n := len(s.clients)
		s.mu.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	s.BroadcastJoints([]network.Record{{Index: 1}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, KindJoints, frame.Kind)
	require.Len(t, frame.Records, 1)
	assert.Equal(t, uint8(1), frame.Records[0].Index)
}
