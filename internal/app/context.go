package app

import (
	"imkit/internal/bus"
	"imkit/internal/domain"
	"imkit/internal/screen"
)

// Context is the application-wide handle given to the event adapter.
// Broadcasts go out on the event bus; navigation goes to the router.
type Context struct {
	events *bus.EventBus
	router *screen.Router
}

var _ domain.Context = (*Context)(nil)

func NewContext(events *bus.EventBus, router *screen.Router) *Context {
	return &Context{events: events, router: router}
}

func (c *Context) SendBroadcast(in domain.Intent) {
	c.events.Emit(bus.Event{Type: in.Action, Source: "app", Payload: in.Extras})
}

func (c *Context) StartScreen(in domain.Intent) error {
	return c.router.StartScreen(in)
}
