package pubsub

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWSServer(t *testing.T, h *PubSubHandlers) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.WebsocketHandler))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// waitAttached waits until n clients are attached to key and the server
// subscription for it exists.
func waitAttached(t *testing.T, h *PubSubHandlers, fc *fakeClient, key string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.clientCounts()[key] == n && fc.hasHandler(key)
	}, 2*time.Second, 5*time.Millisecond, "expected %d clients on %q", n, key)
}

func TestWebsocketRejectsBadQuery(t *testing.T) {
	h := newTestHandlers(t, newFakeClient())

	for _, q := range []string{"", "channel=a&pattern=b*", "channel=a*", "pattern=abc", "channel="} {
		t.Run(q, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.WebsocketHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/pubsub/ws?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestWebsocketForwardsChannelMessages(t *testing.T) {
	fc := newFakeClient()
	h := newTestHandlers(t, fc)
	srv := startWSServer(t, h)

	conn := dialWS(t, srv, "channel=news")
	waitAttached(t, h, fc, "news", 1)

	require.True(t, fc.fire("news", "news", []byte("hello")))
	env := readEnvelope(t, conn)
	assert.Equal(t, "news", env.Channel)
	assert.Empty(t, env.Pattern)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), env.Data)
	assert.NotZero(t, env.Timestamp)
}

func TestWebsocketForwardsPatternMessages(t *testing.T) {
	fc := newFakeClient()
	h := newTestHandlers(t, fc)
	srv := startWSServer(t, h)

	conn := dialWS(t, srv, "pattern=sport.*")
	waitAttached(t, h, fc, "sport.*", 1)
	assert.Equal(t, []string{"PSUBSCRIBE sport.*"}, fc.callLog())

	require.True(t, fc.fire("sport.*", "sport.tennis", []byte("ace")))
	env := readEnvelope(t, conn)
	assert.Equal(t, "sport.tennis", env.Channel)
	assert.Equal(t, "sport.*", env.Pattern)
}

func TestWebsocketSharesOneServerSubscription(t *testing.T) {
	fc := newFakeClient()
	h := newTestHandlers(t, fc)
	srv := startWSServer(t, h)

	first := dialWS(t, srv, "channel=news")
	second := dialWS(t, srv, "channel=news")
	waitAttached(t, h, fc, "news", 2)
	assert.Equal(t, []string{"SUBSCRIBE news"}, fc.callLog())

	require.True(t, fc.fire("news", "news", []byte("both")))
	assert.Equal(t, "news", readEnvelope(t, first).Channel)
	assert.Equal(t, "news", readEnvelope(t, second).Channel)

	require.NoError(t, first.Close())
	waitAttached(t, h, fc, "news", 1)
	assert.Equal(t, []string{"SUBSCRIBE news"}, fc.callLog())

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool { return len(fc.callLog()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"SUBSCRIBE news", "UNSUBSCRIBE news"}, fc.callLog())
	assert.Empty(t, h.clientCounts())
}

func TestWebsocketClientFramesArePublished(t *testing.T) {
	fc := newFakeClient()
	h := newTestHandlers(t, fc)
	srv := startWSServer(t, h)

	conn := dialWS(t, srv, "channel=chat")
	waitAttached(t, h, fc, "chat", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	require.Eventually(t, func() bool { return len(fc.publishLog()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"chat=hi"}, fc.publishLog())
}

func TestWebsocketPatternClientFramesAreIgnored(t *testing.T) {
	fc := newFakeClient()
	h := newTestHandlers(t, fc)
	srv := startWSServer(t, h)

	conn := dialWS(t, srv, "pattern=chat.*")
	waitAttached(t, h, fc, "chat.*", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	// A delivered message proves the frame above was already read.
	require.True(t, fc.fire("chat.*", "chat.x", []byte("m")))
	readEnvelope(t, conn)
	assert.Empty(t, fc.publishLog())
}

func TestCloseDisconnectsClients(t *testing.T) {
	fc := newFakeClient()
	h := newTestHandlers(t, fc)
	srv := startWSServer(t, h)

	conn := dialWS(t, srv, "channel=news")
	waitAttached(t, h, fc, "news", 1)

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	require.Eventually(t, func() bool { return len(fc.callLog()) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestDelivererDropsForSlowClients(t *testing.T) {
	h := newTestHandlers(t, newFakeClient())
	slow := &localSubscriber{id: "slow", key: "news", msgChan: make(chan Envelope, 1)}
	h.localSubscribers["news"] = map[*localSubscriber]struct{}{slow: {}}

	deliver := h.deliverer("news", false)
	require.NoError(t, deliver("news", []byte("1")))
	require.NoError(t, deliver("news", []byte("2")))

	require.Len(t, slow.msgChan, 1)
	env := <-slow.msgChan
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("1")), env.Data)
}
