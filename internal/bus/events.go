package bus

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a process-local broadcast.
type Event struct {
	Type      string         // broadcast action, e.g. domain.ActionReceiveMessage
	Source    string         // originating component
	Payload   map[string]any // intent extras
	Timestamp time.Time
}

type EventHandler func(Event)

// EventBus is a topic-based publish/subscribe bus for broadcasts between the
// event adapter and screens. Handlers run synchronously on the emitting
// goroutine, in registration order.
type EventBus struct {
	mu         sync.RWMutex
	handlers   map[string][]namedHandler
	nextID     int
	history    []Event
	maxHistory int
	lg         *zap.Logger
}

type namedHandler struct {
	id      string
	handler EventHandler
}

func NewEventBus(lg *zap.Logger) *EventBus {
	return &EventBus{
		handlers:   make(map[string][]namedHandler),
		maxHistory: 500,
		lg:         lg.Named("bus"),
	}
}

// On registers a handler for eventType, or for every event with "*".
// The returned id is used with Off.
func (eb *EventBus) On(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eventType + "#" + strconv.Itoa(eb.nextID)
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{id: id, handler: handler})
	return id
}

func (eb *EventBus) Off(eventType, id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	hs := eb.handlers[eventType]
	for i, h := range hs {
		if h.id == id {
			eb.handlers[eventType] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// Emit records the event and calls every matching handler. A panicking
// handler is logged and does not stop the others.
func (eb *EventBus) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	eb.mu.Lock()
	if len(eb.history) >= eb.maxHistory {
		eb.history = eb.history[1:]
	}
	eb.history = append(eb.history, ev)
	handlers := make([]namedHandler, 0, len(eb.handlers[ev.Type])+len(eb.handlers["*"]))
	handlers = append(handlers, eb.handlers[ev.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.Unlock()

	for _, h := range handlers {
		eb.dispatch(h, ev)
	}
}

func (eb *EventBus) dispatch(h namedHandler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.lg.Error("broadcast handler panic",
				zap.String("event", ev.Type),
				zap.String("handler", h.id),
				zap.Any("panic", r),
			)
		}
	}()
	h.handler(ev)
}

// Replay returns recorded events of eventType ("*" for all) at or after since.
func (eb *EventBus) Replay(eventType string, since time.Time) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var out []Event
	for _, ev := range eb.history {
		if ev.Timestamp.Before(since) {
			continue
		}
		if eventType == "*" || ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (eb *EventBus) HistoryLen() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.history)
}
