package bus

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"imkit/internal/domain"
)

const publishTimeout = 10 * time.Second

var (
	ErrClosed  = errors.New("bus: closed")
	ErrDropped = errors.New("bus: inbound queue full")
)

// Queue carries messages between transports and the SDK client: inbound
// messages through a buffered channel, outbound messages to per-channel
// handlers. The inbound channel is never closed; consumers watch Done.
type Queue struct {
	inbound   chan domain.Message
	done      chan struct{}
	closeOnce sync.Once
	handlers  map[string]func(domain.Message)
	mu        sync.RWMutex
	timeout   time.Duration
	lg        *zap.Logger
}

func NewQueue(bufferSize int, lg *zap.Logger) *Queue {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Queue{
		inbound:  make(chan domain.Message, bufferSize),
		done:     make(chan struct{}),
		handlers: make(map[string]func(domain.Message)),
		timeout:  publishTimeout,
		lg:       lg.Named("queue"),
	}
}

// Publish enqueues an inbound message. When the buffer is full it waits up to
// the publish timeout before giving up with ErrDropped. Closing the queue
// ends the wait with ErrClosed.
func (q *Queue) Publish(msg domain.Message) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.inbound <- msg:
		return nil
	default:
	}

	q.lg.Warn("inbound queue full, waiting", zap.String("target", msg.TargetID))
	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	select {
	case q.inbound <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-timer.C:
		q.lg.Error("message dropped", zap.String("target", msg.TargetID), zap.Duration("waited", q.timeout))
		return ErrDropped
	}
}

func (q *Queue) Subscribe() <-chan domain.Message {
	return q.inbound
}

// Done is closed once the queue is closed.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Len is the number of messages waiting to be consumed.
func (q *Queue) Len() int {
	return len(q.inbound)
}

// SendOutbound hands msg to the handler registered for channelName.
// It reports false if nobody is listening.
func (q *Queue) SendOutbound(channelName string, msg domain.Message) bool {
	q.mu.RLock()
	handler, ok := q.handlers[channelName]
	q.mu.RUnlock()
	if !ok {
		return false
	}
	handler(msg)
	return true
}

func (q *Queue) OnOutbound(channelName string, handler func(domain.Message)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[channelName] = handler
}

// Channels lists the names with a registered outbound handler.
func (q *Queue) Channels() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	names := make([]string, 0, len(q.handlers))
	for name := range q.handlers {
		names = append(names, name)
	}
	return names
}

func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
