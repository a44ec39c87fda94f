package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"imkit/internal/domain"
)

const websocketName = "websocket"

// Frame is the JSON protocol spoken on the socket. Content holds the variant
// named by ObjectName, encoded with the domain content's json tags.
type Frame struct {
	Type       string          `json:"type"` // message | status
	ObjectName string          `json:"objectName,omitempty"`
	ChatID     string          `json:"chatId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Group      bool            `json:"group,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
}

// WebSocket serves a socket endpoint that local test clients can chat
// through. Each connection joins one chat, chosen by the chat_id query
// parameter.
type WebSocket struct {
	addr string
	path string
	lg   *zap.Logger

	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type WebSocketConfig struct {
	Addr   string
	Path   string
	Logger *zap.Logger
}

type wsClient struct {
	conn   *websocket.Conn
	chatID string
	mu     sync.Mutex
}

var _ domain.Channel = (*WebSocket)(nil)

func NewWebSocket(cfg WebSocketConfig) *WebSocket {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8081"
	}
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	return &WebSocket{
		addr: cfg.Addr,
		path: cfg.Path,
		lg:   lg.Named(websocketName),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (ws *WebSocket) Name() string { return websocketName }

// Handler returns the upgrade handler feeding sink. Start mounts it at the
// configured path.
func (ws *WebSocket) Handler(sink domain.MessageSink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.serve(sink, w, r)
	})
}

// Start listens until ctx ends, then closes every client.
func (ws *WebSocket) Start(ctx context.Context, sink domain.MessageSink) error {
	sink.OnOutbound(websocketName, ws.sendOutbound)

	mux := http.NewServeMux()
	mux.Handle(ws.path, ws.Handler(sink))
	ws.server = &http.Server{
		Addr:              ws.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		ws.lg.Info("websocket server starting", zap.String("addr", ws.addr), zap.String("path", ws.path))
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ws.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ws.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if r, ok := sink.(statusReporter); ok {
			r.NotifyStatus(domain.StatusNetworkUnavailable)
		}
		return fmt.Errorf("websocket listen: %w", err)
	}
}

func (ws *WebSocket) Stop() error {
	ws.closeAll()
	return nil
}

func (ws *WebSocket) serve(sink domain.MessageSink, w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.lg.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		chatID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}
	c := &wsClient{conn: conn, chatID: chatID}

	ws.mu.Lock()
	ws.clients[c] = struct{}{}
	ws.mu.Unlock()
	defer func() {
		ws.mu.Lock()
		delete(ws.clients, c)
		ws.mu.Unlock()
		conn.Close()
		ws.lg.Debug("websocket client disconnected", zap.String("chat_id", chatID))
	}()

	ws.lg.Debug("websocket client connected", zap.String("chat_id", chatID))
	if err := c.write(Frame{Type: "status", ChatID: chatID, Content: json.RawMessage(`"connected"`)}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.lg.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			ws.lg.Warn("invalid websocket frame", zap.Error(err))
			continue
		}
		if f.Type != "message" {
			continue
		}

		msg, err := messageFromFrame(chatID, f)
		if err != nil {
			ws.lg.Warn("invalid websocket message", zap.String("object_name", f.ObjectName), zap.Error(err))
			continue
		}
		if err := sink.Deliver(msg); err != nil {
			ws.lg.Error("deliver websocket message", zap.String("chat_id", chatID), zap.Error(err))
		}
	}
}

func messageFromFrame(chatID string, f Frame) (domain.Message, error) {
	content, err := decodeContent(f.ObjectName, f.Content)
	if err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ConversationType: domain.ConversationPrivate,
		TargetID:         chatID,
		SenderID:         f.UserID,
		Channel:          websocketName,
		Content:          content,
	}
	if f.Group {
		msg.ConversationType = domain.ConversationGroup
	}
	return msg, nil
}

// decodeContent builds the variant named by objectName. Names without a
// domain type become UnknownContent carrying the raw payload.
func decodeContent(objectName string, raw json.RawMessage) (domain.Content, error) {
	var (
		c   domain.Content
		err error
	)
	switch objectName {
	case domain.ObjectNameText:
		c, err = decodeAs[domain.TextContent](raw)
	case domain.ObjectNameImage:
		c, err = decodeAs[domain.ImageContent](raw)
	case domain.ObjectNameVoice:
		c, err = decodeAs[domain.VoiceContent](raw)
	case domain.ObjectNameRichContent:
		c, err = decodeAs[domain.RichContent](raw)
	case domain.ObjectNameGroupInvitation:
		c, err = decodeAs[domain.GroupInvitationContent](raw)
	case domain.ObjectNameLocation:
		c, err = decodeAs[domain.LocationContent](raw)
	case "":
		return nil, errors.New("missing objectName")
	default:
		c = domain.UnknownContent{Name: objectName, Raw: append([]byte(nil), raw...)}
	}
	return c, err
}

func decodeAs[T domain.Content](raw json.RawMessage) (domain.Content, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func frameFromMessage(msg domain.Message) (Frame, error) {
	f := Frame{
		Type:       "message",
		ObjectName: msg.ObjectName(),
		ChatID:     msg.TargetID,
		UserID:     msg.SenderID,
		Group:      msg.ConversationType == domain.ConversationGroup,
	}
	switch c := msg.Content.(type) {
	case nil:
	case domain.UnknownContent:
		if json.Valid(c.Raw) {
			f.Content = c.Raw
		}
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return Frame{}, err
		}
		f.Content = raw
	}
	return f, nil
}

// sendOutbound writes msg to every client in the target chat.
func (ws *WebSocket) sendOutbound(msg domain.Message) {
	f, err := frameFromMessage(msg)
	if err != nil {
		ws.lg.Error("encode websocket frame", zap.Error(err))
		return
	}

	ws.mu.RLock()
	defer ws.mu.RUnlock()
	sent := 0
	for c := range ws.clients {
		if c.chatID != msg.TargetID {
			continue
		}
		if err := c.write(f); err != nil {
			ws.lg.Debug("websocket write failed", zap.String("chat_id", c.chatID), zap.Error(err))
			continue
		}
		sent++
	}
	if sent == 0 {
		ws.lg.Debug("no websocket client for chat", zap.String("chat_id", msg.TargetID))
	}
}

func (c *wsClient) write(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(f)
}

func (ws *WebSocket) closeAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for c := range ws.clients {
		c.conn.Close()
		delete(ws.clients, c)
	}
}
