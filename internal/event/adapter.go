// Package event is the single coordination point between the messaging SDK's
// callback surface and the host application. One Adapter implements every
// capability the SDK asks a host for; it logs, re-broadcasts unread counts,
// relays directory lookups and opens screens.
package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"imkit/internal/analytics"
	"imkit/internal/domain"
	"imkit/internal/store"
)

const defaultLookupTimeout = 2 * time.Second

// Config wires an Adapter to its collaborators. SDK, App and Data are
// required; Metrics is optional.
type Config struct {
	SDK  domain.SDK
	App  domain.Context
	Data store.DataSource

	CacheUserInfo bool
	LookupTimeout time.Duration

	Metrics *analytics.AppMetrics
	Logger  *zap.Logger
}

type Adapter struct {
	sdk     domain.SDK
	app     domain.Context
	data    store.DataSource
	timeout time.Duration
	metrics *analytics.AppMetrics
	lg      *zap.Logger
	behave  *zap.Logger
}

var (
	_ domain.ReceiveMessageListener       = (*Adapter)(nil)
	_ domain.SendMessageListener          = (*Adapter)(nil)
	_ domain.UserInfoProvider             = (*Adapter)(nil)
	_ domain.FriendsProvider              = (*Adapter)(nil)
	_ domain.GroupInfoProvider            = (*Adapter)(nil)
	_ domain.ConversationBehaviorListener = (*Adapter)(nil)
	_ domain.ConnectionStatusListener     = (*Adapter)(nil)
	_ domain.LocationProvider             = (*Adapter)(nil)
)

// New builds an adapter and registers the providers that are valid straight
// after SDK initialisation: user info, friends, group info, conversation
// behaviour and location.
func New(cfg Config) *Adapter {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	a := &Adapter{
		sdk:     cfg.SDK,
		app:     cfg.App,
		data:    cfg.Data,
		timeout: timeout,
		metrics: cfg.Metrics,
		lg:      lg.Named("event"),
		behave:  lg.Named("behavior"),
	}
	a.registerDefaultProviders(cfg.CacheUserInfo)
	return a
}

var (
	once     sync.Once
	instance atomic.Pointer[Adapter]
)

// Init constructs the process-wide adapter on the first call and returns it.
// Concurrent first calls build exactly one instance; later calls return that
// instance and ignore cfg.
func Init(cfg Config) *Adapter {
	once.Do(func() {
		instance.Store(New(cfg))
	})
	return instance.Load()
}

// Instance returns the adapter built by Init, or nil if Init has not run.
func Instance() *Adapter {
	return instance.Load()
}

func (a *Adapter) registerDefaultProviders(cacheUserInfo bool) {
	a.sdk.SetUserInfoProvider(a, cacheUserInfo)
	a.sdk.SetFriendsProvider(a)
	a.sdk.SetGroupInfoProvider(a)
	a.sdk.SetConversationBehaviorListener(a)
	a.sdk.SetLocationProvider(a)
}

// RegisterSessionListeners registers the message and connection listeners.
// Call it only from the SDK's connect-success callback.
func (a *Adapter) RegisterSessionListeners() {
	a.sdk.SetReceiveMessageListener(a)
	a.sdk.SetSendMessageListener(a)
	a.sdk.SetConnectionStatusListener(a)
}

// OnReceived logs the inbound message by kind and broadcasts the SDK's total
// unread count.
func (a *Adapter) OnReceived(msg domain.Message, left int) {
	defer a.recoverCallback("OnReceived")

	a.logContent("onReceived", msg, true)
	a.countMessage("received", msg)

	in := domain.NewBroadcast(domain.ActionReceiveMessage).
		Put(domain.ExtraUnreadCount, a.sdk.TotalUnreadCount())
	a.app.SendBroadcast(in)
	if a.metrics != nil {
		a.metrics.Broadcasts.Inc()
	}
	a.lg.Debug("onReceived-broadcast", zap.Int("left", left), zap.Any("unread", in.Extras[domain.ExtraUnreadCount]))
}

// OnSent runs after a local message is handed off, whatever the outcome.
func (a *Adapter) OnSent(msg domain.Message) {
	defer a.recoverCallback("OnSent")

	a.logContent("onSent", msg, false)
	a.countMessage("sent", msg)
}

// logContent writes exactly one debug entry describing msg's content. Push
// content only exists on inbound text.
func (a *Adapter) logContent(prefix string, msg domain.Message, inbound bool) {
	switch c := msg.Content.(type) {
	case domain.TextContent:
		fields := []zap.Field{zap.String("content", c.Content)}
		if inbound {
			fields = append(fields, zap.String("push_content", c.PushContent))
		}
		a.lg.Debug(prefix+"-TextMessage", fields...)
	case domain.ImageContent:
		a.lg.Debug(prefix+"-ImageMessage", zap.String("remote_uri", c.RemoteURI))
	case domain.VoiceContent:
		a.lg.Debug(prefix+"-VoiceMessage", zap.String("uri", c.URI), zap.Duration("duration", c.Duration))
	case domain.RichContent:
		a.lg.Debug(prefix+"-RichContentMessage", zap.String("content", c.Content))
	case domain.GroupInvitationContent:
		a.lg.Debug(prefix+"-GroupInvitationNotification", zap.String("operation", c.Operation), zap.String("message", c.Message))
	default:
		a.logOther(prefix, msg)
	}
}

func (a *Adapter) logOther(prefix string, msg domain.Message) {
	a.lg.Debug(prefix+"-OtherMessage", zap.String("object_name", msg.ObjectName()), zap.String("id", msg.ID))
}

func (a *Adapter) countMessage(direction string, msg domain.Message) {
	if a.metrics == nil {
		return
	}
	kind := domain.KindUnknown
	if msg.Content != nil {
		kind = msg.Content.Kind()
	}
	a.metrics.Messages.WithLabelValues(direction, kind.String()).Inc()
}

// UserInfo relays to the data source. Unknown users and lookup failures
// both yield nil.
func (a *Adapter) UserInfo(userID string) *domain.UserInfo {
	defer a.recoverCallback("UserInfo")

	ctx, cancel := a.lookupContext()
	defer cancel()
	u, err := a.data.UserInfoByID(ctx, userID)
	if err != nil {
		a.lg.Warn("user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return u
}

func (a *Adapter) Friends() []domain.UserInfo {
	defer a.recoverCallback("Friends")

	ctx, cancel := a.lookupContext()
	defer cancel()
	users, err := a.data.UserInfos(ctx)
	if err != nil {
		a.lg.Warn("friends lookup failed", zap.Error(err))
		return nil
	}
	return users
}

func (a *Adapter) GroupInfo(groupID string) *domain.Group {
	defer a.recoverCallback("GroupInfo")

	ctx, cancel := a.lookupContext()
	defer cancel()
	groups, err := a.data.GroupMap(ctx)
	if err != nil {
		a.lg.Warn("group lookup failed", zap.String("group_id", groupID), zap.Error(err))
		return nil
	}
	g, ok := groups[groupID]
	if !ok {
		return nil
	}
	return &g
}

func (a *Adapter) lookupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

// OnUserPortraitClick opens the clicked user's profile. It never suppresses
// the SDK's default handling.
func (a *Adapter) OnUserPortraitClick(nav domain.Navigator, convType domain.ConversationType, user domain.UserInfo) (suppress bool) {
	defer a.recoverCallback("OnUserPortraitClick")

	a.lg.Debug("onClickUserPortrait")
	a.behave.Debug("portrait clicked", zap.String("conversation", convType.String()), zap.String("user_name", user.Name))

	in := domain.NewIntent(domain.ScreenProfile).
		Put(domain.ExtraUserName, user.Name).
		Put(domain.ExtraUserID, user.UserID)
	a.startScreen(nav, in)
	return false
}

// OnMessageClick opens the location screen for location messages and logs
// the extra payload of rich-content messages. It never suppresses the SDK's
// default handling.
func (a *Adapter) OnMessageClick(nav domain.Navigator, msg domain.Message) (suppress bool) {
	defer a.recoverCallback("OnMessageClick")

	a.lg.Debug("onClickMessage")

	switch c := msg.Content.(type) {
	case domain.LocationContent:
		a.startScreen(nav, domain.NewIntent(domain.ScreenLocation).Put(domain.ExtraLocation, c))
	case domain.RichContent:
		a.behave.Debug("rich content clicked", zap.String("extra", c.Extra))
	}

	a.behave.Debug("message clicked", zap.String("object_name", msg.ObjectName()), zap.String("id", msg.ID))
	return false
}

func (a *Adapter) OnConnectionStatusChanged(status domain.ConnectionStatus) {
	defer a.recoverCallback("OnConnectionStatusChanged")

	a.lg.Debug("onChanged", zap.Stringer("status", status))
	if a.metrics != nil {
		a.metrics.ConnectionStatus.WithLabelValues(status.String()).Inc()
	}
}

// OnStartLocation parks cb in the data source and opens the location picker,
// which resolves it.
func (a *Adapter) OnStartLocation(nav domain.Navigator, cb domain.LocationCallback) {
	defer a.recoverCallback("OnStartLocation")

	a.data.SetPendingLocationCallback(cb)
	a.startScreen(nav, domain.NewIntent(domain.ScreenLocation))
}

func (a *Adapter) startScreen(nav domain.Navigator, in domain.Intent) {
	if nav == nil {
		nav = a.app
	}
	if err := nav.StartScreen(in); err != nil {
		a.lg.Warn("start screen failed", zap.String("target", in.Target), zap.Error(err))
	}
}

// recoverCallback stops a panic from escaping into the SDK, which waits on
// callback completion.
func (a *Adapter) recoverCallback(name string) {
	if r := recover(); r != nil {
		a.lg.Error("callback panic", zap.String("callback", name), zap.Any("panic", r), zap.Stack("stack"))
	}
}
