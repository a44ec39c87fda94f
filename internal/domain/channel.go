package domain

import "context"

// MessageSink is what a transport channel feeds: the local SDK client.
type MessageSink interface {
	Deliver(msg Message) error
	OnOutbound(channelName string, handler func(Message))
}

// Channel is an external transport bridged into the SDK (Telegram, ...).
type Channel interface {
	Name() string
	Start(ctx context.Context, sink MessageSink) error
	Stop() error
}
