package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imkit/internal/domain"
)

func TestQueue_PublishSubscribe(t *testing.T) {
	q := NewQueue(4, zap.NewNop())
	defer q.Close()

	require.NoError(t, q.Publish(domain.Message{ID: "1"}))
	require.NoError(t, q.Publish(domain.Message{ID: "2"}))
	assert.Equal(t, 2, q.Len())

	got := <-q.Subscribe()
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_FullDropsAfterTimeout(t *testing.T) {
	q := NewQueue(1, zap.NewNop())
	q.timeout = 20 * time.Millisecond
	defer q.Close()

	require.NoError(t, q.Publish(domain.Message{ID: "1"}))
	assert.ErrorIs(t, q.Publish(domain.Message{ID: "2"}), ErrDropped)
}

func TestQueue_FullDeliversWhenDrained(t *testing.T) {
	q := NewQueue(1, zap.NewNop())
	defer q.Close()

	require.NoError(t, q.Publish(domain.Message{ID: "1"}))
	go func() {
		time.Sleep(20 * time.Millisecond)
		<-q.Subscribe()
	}()
	assert.NoError(t, q.Publish(domain.Message{ID: "2"}))
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, zap.NewNop())
	q.Close()
	q.Close() // idempotent

	assert.ErrorIs(t, q.Publish(domain.Message{}), ErrClosed)
	select {
	case <-q.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestQueue_CloseEndsBlockedPublish(t *testing.T) {
	q := NewQueue(1, zap.NewNop())
	require.NoError(t, q.Publish(domain.Message{ID: "1"}))

	errc := make(chan error, 1)
	go func() { errc <- q.Publish(domain.Message{ID: "2"}) }()
	time.Sleep(20 * time.Millisecond)

	// A waiting publisher must not hold up handler registration.
	registered := make(chan struct{})
	go func() {
		q.OnOutbound("telegram", func(domain.Message) {})
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("OnOutbound blocked by waiting Publish")
	}

	q.Close()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Publish still waiting after Close")
	}
}

func TestQueue_Outbound(t *testing.T) {
	q := NewQueue(1, zap.NewNop())
	defer q.Close()

	var got domain.Message
	q.OnOutbound("telegram", func(m domain.Message) { got = m })

	assert.True(t, q.SendOutbound("telegram", domain.Message{ID: "out"}))
	assert.Equal(t, "out", got.ID)
	assert.False(t, q.SendOutbound("nobody", domain.Message{}))
	assert.Equal(t, []string{"telegram"}, q.Channels())
}
