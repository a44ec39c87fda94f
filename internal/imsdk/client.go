// Package imsdk is an in-process messaging client exposing the extension
// surface a host application binds to: provider and listener setters, a
// connect callback, unread counters and the conversation UI's click hooks.
// Messages reach it from transports through a bus.Queue.
package imsdk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imkit/internal/bus"
	"imkit/internal/domain"
)

var (
	ErrNotConnected     = errors.New("imsdk: not connected")
	ErrAlreadyConnected = errors.New("imsdk: already connected")
	ErrInvalidToken     = errors.New("imsdk: invalid token")
)

// ConnectCallback reports the outcome of Connect. Either field may be nil.
type ConnectCallback struct {
	OnSuccess func(userID string)
	OnError   func(err error)
}

type Config struct {
	Queue  *bus.Queue
	Logger *zap.Logger
}

type Client struct {
	queue *bus.Queue
	lg    *zap.Logger

	mu            sync.RWMutex
	userInfo      domain.UserInfoProvider
	cacheUserInfo bool
	friends       domain.FriendsProvider
	groups        domain.GroupInfoProvider
	behavior      domain.ConversationBehaviorListener
	location      domain.LocationProvider
	receive       domain.ReceiveMessageListener
	send          domain.SendMessageListener
	status        domain.ConnectionStatusListener

	state      domain.ConnectionStatus
	connecting bool // slot claimed by a Connect still in progress
	userID     string
	cancel     context.CancelFunc
	done       chan struct{}
	unread    map[string]int
	userCache map[string]domain.UserInfo
}

var (
	_ domain.SDK         = (*Client)(nil)
	_ domain.MessageSink = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	q := cfg.Queue
	if q == nil {
		q = bus.NewQueue(0, lg)
	}
	return &Client{
		queue:     q,
		lg:        lg.Named("imsdk"),
		state:     domain.StatusDisconnected,
		unread:    make(map[string]int),
		userCache: make(map[string]domain.UserInfo),
	}
}

// --- provider registry ---

func (c *Client) SetUserInfoProvider(p domain.UserInfoProvider, cache bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userInfo = p
	c.cacheUserInfo = cache
	c.userCache = make(map[string]domain.UserInfo)
}

func (c *Client) SetFriendsProvider(p domain.FriendsProvider) {
	c.mu.Lock()
	c.friends = p
	c.mu.Unlock()
}

func (c *Client) SetGroupInfoProvider(p domain.GroupInfoProvider) {
	c.mu.Lock()
	c.groups = p
	c.mu.Unlock()
}

func (c *Client) SetConversationBehaviorListener(l domain.ConversationBehaviorListener) {
	c.mu.Lock()
	c.behavior = l
	c.mu.Unlock()
}

func (c *Client) SetLocationProvider(p domain.LocationProvider) {
	c.mu.Lock()
	c.location = p
	c.mu.Unlock()
}

// --- session registry ---

func (c *Client) SetReceiveMessageListener(l domain.ReceiveMessageListener) {
	c.mu.Lock()
	c.receive = l
	c.mu.Unlock()
}

func (c *Client) SetSendMessageListener(l domain.SendMessageListener) {
	c.mu.Lock()
	c.send = l
	c.mu.Unlock()
}

func (c *Client) SetConnectionStatusListener(l domain.ConnectionStatusListener) {
	c.mu.Lock()
	c.status = l
	c.mu.Unlock()
}

// --- connection ---

// Connect authenticates with token and starts dispatching inbound messages.
// Tokens have the form "<userID>" or "<userID>:<secret>". cb.OnSuccess runs
// before dispatch starts, so session listeners registered there see every
// message.
func (c *Client) Connect(ctx context.Context, token string, cb ConnectCallback) error {
	c.mu.Lock()
	if c.cancel != nil || c.connecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.connecting = true
	c.mu.Unlock()

	c.setStatus(domain.StatusConnecting)

	userID, _, _ := strings.Cut(strings.TrimSpace(token), ":")
	if userID == "" {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		c.setStatus(domain.StatusTokenIncorrect)
		if cb.OnError != nil {
			cb.OnError(ErrInvalidToken)
		}
		return ErrInvalidToken
	}

	dctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.userID = userID
	c.cancel = cancel
	c.done = done
	c.connecting = false
	c.mu.Unlock()

	c.lg.Info("connected", zap.String("user_id", userID))
	if cb.OnSuccess != nil {
		cb.OnSuccess(userID)
	}
	c.setStatus(domain.StatusConnected)

	go c.dispatch(dctx, done)
	return nil
}

// Disconnect stops dispatch and waits for the in-flight callback to return.
// It is a no-op when the session already ended with its context.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.setStatus(domain.StatusDisconnected)
	c.lg.Info("disconnected")
}

// NotifyStatus lets a transport report a connection change, e.g. network loss.
func (c *Client) NotifyStatus(status domain.ConnectionStatus) {
	c.setStatus(status)
}

func (c *Client) Status() domain.ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) CurrentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setStatus(s domain.ConnectionStatus) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	l := c.status
	c.mu.Unlock()

	if changed && l != nil {
		l.OnConnectionStatusChanged(s)
	}
}

func (c *Client) connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancel != nil
}

func (c *Client) dispatch(ctx context.Context, done chan struct{}) {
	defer close(done)
	in := c.queue.Subscribe()
	for {
		select {
		case <-ctx.Done():
			c.endSession(done, "connect context ended")
			return
		case <-c.queue.Done():
			c.endSession(done, "inbound queue closed")
			return
		case msg := <-in:
			c.handleInbound(msg)
		}
	}
}

// endSession releases the connection slot when dispatch stops on its own.
// If Disconnect already took the slot it does nothing.
func (c *Client) endSession(done chan struct{}, reason string) {
	c.mu.RLock()
	owned := c.done == done
	c.mu.RUnlock()
	if !owned {
		return
	}

	// Report while the slot is still held so a reconnect cannot interleave.
	c.setStatus(domain.StatusDisconnected)

	c.mu.Lock()
	var cancel context.CancelFunc
	if c.done == done {
		cancel = c.cancel
		c.cancel, c.done = nil, nil
	}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.lg.Info("session ended", zap.String("reason", reason))
}

func (c *Client) handleInbound(msg domain.Message) {
	c.mu.Lock()
	c.unread[unreadKey(msg.ConversationType, msg.TargetID)]++
	l := c.receive
	c.mu.Unlock()

	if l == nil {
		c.lg.Debug("no receive listener, message counted only", zap.String("id", msg.ID))
		return
	}
	l.OnReceived(msg, c.queue.Len())
}

// --- messages ---

// Deliver queues an inbound message. It is the entry point for transports
// and may be called before Connect; messages wait in the queue.
func (c *Client) Deliver(msg domain.Message) error {
	stamp(&msg)
	return c.queue.Publish(msg)
}

func (c *Client) OnOutbound(channelName string, handler func(domain.Message)) {
	c.queue.OnOutbound(channelName, handler)
}

// Send hands a locally composed message to its transport and then notifies
// the send listener. The listener runs whether or not a transport took it.
func (c *Client) Send(msg domain.Message) (domain.Message, error) {
	if !c.connected() {
		return msg, ErrNotConnected
	}
	stamp(&msg)
	if msg.SenderID == "" {
		msg.SenderID = c.CurrentUserID()
	}

	if msg.Channel != "" && !c.queue.SendOutbound(msg.Channel, msg) {
		c.lg.Warn("no transport for outbound message", zap.String("channel", msg.Channel), zap.String("id", msg.ID))
	}

	c.mu.RLock()
	l := c.send
	c.mu.RUnlock()
	if l != nil {
		l.OnSent(msg)
	}
	return msg, nil
}

func stamp(msg *domain.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	if msg.ConversationType == 0 {
		msg.ConversationType = domain.ConversationPrivate
	}
	if msg.Content == nil {
		msg.Content = domain.UnknownContent{}
	}
}

// --- unread ---

func unreadKey(t domain.ConversationType, target string) string {
	return t.String() + ":" + target
}

func (c *Client) TotalUnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, n := range c.unread {
		total += n
	}
	return total
}

func (c *Client) UnreadCount(t domain.ConversationType, target string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread[unreadKey(t, target)]
}

// ClearUnread marks a conversation as read.
func (c *Client) ClearUnread(t domain.ConversationType, target string) {
	c.mu.Lock()
	delete(c.unread, unreadKey(t, target))
	c.mu.Unlock()
}
