package config

import "time"

func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name: "imkit",
			Env:  "dev",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File: LumberjackConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 7,
				Compress:   true,
			},
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   "~/.imkit/imkit.db",
		},
		SDK: SDKConfig{
			CacheUserInfo: true,
			QueueSize:     256,
			LookupTimeout: 2 * time.Second,
		},
		Telegram: TelegramConfig{
			Enabled: false,
		},
		WebSocket: WebSocketConfig{
			Addr: "127.0.0.1:8081",
			Path: "/ws",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
			Path:    "/metrics",
		},
	}
}
