package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	header := http.Header{}
	header.Set(HeaderUserID, userID)
	header.Set(HeaderUserRole, string(RoleBuyer))

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame returns the next frame of the given type, skipping others.
func readFrame(t *testing.T, conn *websocket.Conn, frameType string) OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame OutboundFrame
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame.Type == frameType {
			return frame
		}
	}
}

func TestWebSocket_RequiresIdentity(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_RoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts)
	defer srv.Close()

	seller := dialWS(t, srv, "seller-1")
	// Join follows Subscribe, so once online the seller receives presence.
	require.Eventually(t, func() bool { return ts.services.Hub.IsOnline("seller-1") }, 2*time.Second, 10*time.Millisecond)
	buyer := dialWS(t, srv, "buyer-1")

	// The seller sees the buyer come online.
	require.Eventually(t, func() bool { return ts.services.Hub.IsOnline("buyer-1") }, 2*time.Second, 10*time.Millisecond)
	presence := readFrame(t, seller, FramePresence)
	for presence.Presence.UserID != "buyer-1" {
		presence = readFrame(t, seller, FramePresence)
	}
	assert.True(t, presence.Presence.Online)

	require.NoError(t, buyer.WriteJSON(InboundFrame{
		Type:        FrameMessage,
		RecipientID: "seller-1",
		Body:        "Do you ship abroad?",
		ClientRef:   "tmp-42",
	}))

	got := readFrame(t, seller, FrameMessage)
	require.NotNil(t, got.Message)
	assert.Equal(t, "buyer-1", got.Message.SenderID)
	assert.Equal(t, "Do you ship abroad?", got.Message.Body)

	echo := readFrame(t, buyer, FrameMessage)
	assert.Equal(t, "tmp-42", echo.Message.ClientRef)
	assert.Equal(t, got.Message.ID, echo.Message.ID)

	require.NoError(t, buyer.WriteJSON(InboundFrame{Type: FrameMessage, RecipientID: "seller-1", Body: "  "}))
	failed := readFrame(t, buyer, FrameError)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "VALIDATION", failed.Error.Code)

	require.NoError(t, buyer.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing"}`)))
	failed = readFrame(t, buyer, FrameError)
	assert.Equal(t, "VALIDATION", failed.Error.Code)

	// Closing the socket withdraws presence.
	require.NoError(t, buyer.Close())
	require.Eventually(t, func() bool { return !ts.services.Hub.IsOnline("buyer-1") }, 2*time.Second, 10*time.Millisecond)
}
