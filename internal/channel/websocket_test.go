package channel

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imkit/internal/domain"
)

func TestDecodeContent(t *testing.T) {
	c, err := decodeContent(domain.ObjectNameLocation, json.RawMessage(`{"latitude":1.5,"longitude":2.5,"poi":"Cafe"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.LocationContent{Latitude: 1.5, Longitude: 2.5, POI: "Cafe"}, c)

	c, err = decodeContent(domain.ObjectNameText, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TextContent{}, c)

	c, err = decodeContent("App:Card", json.RawMessage(`{"k":1}`))
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownContent{Name: "App:Card", Raw: []byte(`{"k":1}`)}, c)

	_, err = decodeContent(domain.ObjectNameImage, json.RawMessage(`[1,2]`))
	assert.Error(t, err)
	_, err = decodeContent("", nil)
	assert.Error(t, err)
}

func TestFrameFromMessage(t *testing.T) {
	f, err := frameFromMessage(domain.Message{
		TargetID:         "room",
		SenderID:         "alice",
		ConversationType: domain.ConversationGroup,
		Content:          domain.RichContent{Title: "T", Content: "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ObjectNameRichContent, f.ObjectName)
	assert.True(t, f.Group)
	assert.JSONEq(t, `{"title":"T","content":"C"}`, string(f.Content))

	f, err = frameFromMessage(domain.Message{Content: domain.UnknownContent{Name: "X", Raw: []byte("not json")}})
	require.NoError(t, err)
	assert.Empty(t, f.Content)
}

func dialRoom(t *testing.T, srv *httptest.Server, chatID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?chat_id=" + chatID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "status", hello.Type)
	require.Equal(t, chatID, hello.ChatID)
	return conn
}

func TestWebSocket_InboundRoundTrip(t *testing.T) {
	ws := NewWebSocket(WebSocketConfig{})
	sink := &fakeSink{}
	srv := httptest.NewServer(ws.Handler(sink))
	defer srv.Close()

	conn := dialRoom(t, srv, "room1")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{broken")))
	require.NoError(t, conn.WriteJSON(Frame{Type: "status"}))
	require.NoError(t, conn.WriteJSON(Frame{
		Type:       "message",
		ObjectName: domain.ObjectNameText,
		UserID:     "alice",
		Content:    json.RawMessage(`{"content":"hi there"}`),
	}))

	require.Eventually(t, func() bool { return len(sink.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := sink.messages()[0]
	assert.Equal(t, "room1", got.TargetID)
	assert.Equal(t, "alice", got.SenderID)
	assert.Equal(t, "websocket", got.Channel)
	assert.Equal(t, domain.TextContent{Content: "hi there"}, got.Content)
}

func TestWebSocket_OutboundReachesChat(t *testing.T) {
	ws := NewWebSocket(WebSocketConfig{})
	srv := httptest.NewServer(ws.Handler(&fakeSink{}))
	defer srv.Close()

	room := dialRoom(t, srv, "room1")
	other := dialRoom(t, srv, "room2")

	ws.sendOutbound(domain.Message{TargetID: "room1", SenderID: "bob", Content: domain.TextContent{Content: "yo"}})

	var f Frame
	require.NoError(t, room.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, room.ReadJSON(&f))
	assert.Equal(t, "message", f.Type)
	assert.Equal(t, domain.ObjectNameText, f.ObjectName)
	assert.Equal(t, "bob", f.UserID)
	assert.JSONEq(t, `{"content":"yo"}`, string(f.Content))

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "room2 receives nothing")
}
