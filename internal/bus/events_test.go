package bus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEventBus_EmitAndReceive(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	var got Event
	eb.On("imkit.test", func(e Event) { got = e })
	eb.Emit(Event{Type: "imkit.test", Payload: map[string]any{"unread_count": 3}})

	assert.Equal(t, 3, got.Payload["unread_count"])
	assert.False(t, got.Timestamp.IsZero(), "timestamp should be auto-set")
}

func TestEventBus_WildcardHandler(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	var count int32
	eb.On("*", func(Event) { atomic.AddInt32(&count, 1) })
	eb.Emit(Event{Type: "a"})
	eb.Emit(Event{Type: "b"})

	assert.EqualValues(t, 2, atomic.LoadInt32(&count))
}

func TestEventBus_Off(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	var count int32
	id := eb.On("x", func(Event) { atomic.AddInt32(&count, 1) })
	other := eb.On("x", func(Event) { atomic.AddInt32(&count, 10) })
	assert.NotEqual(t, id, other)

	eb.Emit(Event{Type: "x"})
	eb.Off("x", id)
	eb.Emit(Event{Type: "x"})

	assert.EqualValues(t, 21, atomic.LoadInt32(&count))
}

func TestEventBus_Replay(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	eb.Emit(Event{Type: "old", Timestamp: time.Now().Add(-time.Hour)})
	threshold := time.Now()
	eb.Emit(Event{Type: "a"})
	eb.Emit(Event{Type: "b"})

	assert.Len(t, eb.Replay("*", time.Time{}), 3)
	assert.Len(t, eb.Replay("*", threshold), 2)
	assert.Len(t, eb.Replay("a", time.Time{}), 1)
}

func TestEventBus_HistoryLimit(t *testing.T) {
	eb := NewEventBus(zap.NewNop())
	eb.maxHistory = 4

	for i := 0; i < 10; i++ {
		eb.Emit(Event{Type: "t"})
	}
	assert.Equal(t, 4, eb.HistoryLen())
}

func TestEventBus_PanicRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	eb := NewEventBus(zap.New(core))

	var after int32
	eb.On("p", func(Event) { panic("boom") })
	eb.On("p", func(Event) { atomic.AddInt32(&after, 1) })

	require.NotPanics(t, func() { eb.Emit(Event{Type: "p"}) })
	assert.EqualValues(t, 1, atomic.LoadInt32(&after), "later handlers still run")
	assert.Equal(t, 1, logs.FilterMessage("broadcast handler panic").Len())
}

func TestEventBus_HandlerOrder(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	var order []string
	eb.On("*", func(Event) { order = append(order, "wild") })
	eb.On("e", func(Event) { order = append(order, "first") })
	eb.On("e", func(Event) { order = append(order, "second") })
	eb.Emit(Event{Type: "e"})

	assert.Equal(t, []string{"first", "second", "wild"}, order)
}
