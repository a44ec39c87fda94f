// Package app is the composition root: it builds every component from
// configuration and wires the event adapter between the SDK client and the
// rest of the application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"imkit/internal/analytics"
	"imkit/internal/bus"
	"imkit/internal/channel"
	"imkit/internal/config"
	"imkit/internal/domain"
	"imkit/internal/event"
	"imkit/internal/imsdk"
	"imkit/internal/screen"
	"imkit/internal/store"
)

// buildAdapter is event.Init in production. Tests swap in event.New so each
// App gets its own adapter.
var buildAdapter = event.Init

type App struct {
	cfg *config.Config
	lg  *zap.Logger

	Store    store.Store
	Events   *bus.EventBus
	Queue    *bus.Queue
	Router   *screen.Router
	Context  *Context
	Client   *imsdk.Client
	Adapter  *event.Adapter
	Registry *prometheus.Registry
	Tracker  *analytics.Tracker
	Metrics  *analytics.AppMetrics
}

// New builds the application. The SDK client is not connected yet.
func New(ctx context.Context, cfg *config.Config, lg *zap.Logger) (*App, error) {
	if lg == nil {
		lg = zap.NewNop()
	}

	st, err := OpenStore(cfg.Store, lg)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Fixture != "" {
		if err := seed(ctx, st, cfg.Store.Fixture, lg); err != nil {
			st.Close()
			return nil, err
		}
	}

	reg := analytics.NewRegistry()
	tracker := analytics.NewTracker(reg, lg)
	metrics := analytics.NewAppMetrics(reg)

	events := bus.NewEventBus(lg)
	queue := bus.NewQueue(cfg.SDK.QueueSize, lg)

	router := screen.NewRouter(tracker, lg)
	router.Register(domain.ScreenHome, screen.HomeFactory(events))
	router.Register(domain.ScreenProfile, screen.ProfileFactory())
	router.Register(domain.ScreenLocation, screen.LocationFactory(st))

	appCtx := NewContext(events, router)
	client := imsdk.NewClient(imsdk.Config{Queue: queue, Logger: lg})

	adapter := buildAdapter(event.Config{
		SDK:           client,
		App:           appCtx,
		Data:          st,
		CacheUserInfo: cfg.SDK.CacheUserInfo,
		LookupTimeout: cfg.SDK.LookupTimeout,
		Metrics:       metrics,
		Logger:        lg,
	})

	return &App{
		cfg:      cfg,
		lg:       lg,
		Store:    st,
		Events:   events,
		Queue:    queue,
		Router:   router,
		Context:  appCtx,
		Client:   client,
		Adapter:  adapter,
		Registry: reg,
		Tracker:  tracker,
		Metrics:  metrics,
	}, nil
}

// OpenStore opens the directory selected by cfg.Driver.
func OpenStore(cfg config.StoreConfig, lg *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.Path, lg)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func seed(ctx context.Context, w store.Writer, path string, lg *zap.Logger) error {
	f, err := store.LoadFixture(path)
	if err != nil {
		return err
	}
	if err := store.Seed(ctx, w, f); err != nil {
		return err
	}
	lg.Info("directory seeded", zap.String("fixture", path), zap.Int("users", len(f.Users)), zap.Int("groups", len(f.Groups)))
	return nil
}

// Connect connects the SDK client with the configured token. Session
// listeners are registered from the success callback, then the home screen
// opens with the current unread count.
func (a *App) Connect(ctx context.Context) error {
	err := a.Client.Connect(ctx, a.cfg.SDK.Token, imsdk.ConnectCallback{
		OnSuccess: func(userID string) {
			a.lg.Info("sdk connected", zap.String("user_id", userID))
			a.Adapter.RegisterSessionListeners()
		},
		OnError: func(err error) {
			a.lg.Error("sdk connect failed", zap.Error(err))
		},
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	home := domain.NewIntent(domain.ScreenHome).Put(domain.ExtraUnreadCount, a.Client.TotalUnreadCount())
	if err := a.Router.StartScreen(home); err != nil {
		return fmt.Errorf("open home: %w", err)
	}
	return nil
}

// Channels returns the transports enabled in config.
func (a *App) Channels() []domain.Channel {
	var chs []domain.Channel
	if a.cfg.Telegram.Enabled {
		chs = append(chs, channel.NewTelegram(channel.TelegramConfig{
			Token:     a.cfg.Telegram.Token,
			AllowFrom: a.cfg.Telegram.AllowFrom,
			Logger:    a.lg,
		}))
	}
	if a.cfg.Discord.Enabled {
		chs = append(chs, channel.NewDiscord(channel.DiscordConfig{
			Token:   a.cfg.Discord.Token,
			GuildID: a.cfg.Discord.GuildID,
			Logger:  a.lg,
		}))
	}
	if a.cfg.Slack.Enabled {
		chs = append(chs, channel.NewSlack(channel.SlackConfig{
			BotToken: a.cfg.Slack.BotToken,
			AppToken: a.cfg.Slack.AppToken,
			Logger:   a.lg,
		}))
	}
	if a.cfg.WebSocket.Enabled {
		chs = append(chs, channel.NewWebSocket(channel.WebSocketConfig{
			Addr:   a.cfg.WebSocket.Addr,
			Path:   a.cfg.WebSocket.Path,
			Logger: a.lg,
		}))
	}
	return chs
}

// MetricsServer returns the /metrics HTTP server, or nil when disabled.
func (a *App) MetricsServer() *http.Server {
	if !a.cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, analytics.Handler(a.Registry))
	return &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Close disconnects and releases resources in reverse order of creation.
func (a *App) Close() error {
	a.Client.Disconnect()
	a.Router.Close()
	a.Queue.Close()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
