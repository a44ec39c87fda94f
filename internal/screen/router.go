package screen

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"imkit/internal/domain"
)

var ErrUnknownScreen = errors.New("screen: unknown target")

// Factory builds a screen around a prepared Base.
type Factory func(b *Base) Screen

// Router implements domain.Navigator over a back stack of screens. Starting
// a screen pauses the one in front; going back destroys the front screen and
// resumes the one beneath.
type Router struct {
	mu        sync.Mutex
	factories map[string]Factory
	stack     []Screen
	analytics Analytics
	newWindow func() Window
	lg        *zap.Logger
}

var _ domain.Navigator = (*Router)(nil)

func NewRouter(a Analytics, lg *zap.Logger) *Router {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Router{
		factories: make(map[string]Factory),
		analytics: a,
		newWindow: func() Window { return NewHeadlessWindow() },
		lg:        lg,
	}
}

func (r *Router) Register(target string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[target] = f
}

// StartScreen creates the target screen and brings it to the front.
func (r *Router) StartScreen(in domain.Intent) error {
	r.mu.Lock()
	f, ok := r.factories[in.Target]
	var front Screen
	if n := len(r.stack); n > 0 {
		front = r.stack[n-1]
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, in.Target)
	}

	if front != nil {
		front.Core().Pause()
	}

	b := NewBase(in.Target, r.newWindow(), in, r.analytics, r.lg)
	s := f(b)
	b.setFinisher(func() { r.finish(s) })
	b.Create(s)
	b.Resume()

	r.mu.Lock()
	r.stack = append(r.stack, s)
	depth := len(r.stack)
	r.mu.Unlock()

	r.lg.Info("screen started", zap.String("target", in.Target), zap.Int("depth", depth))
	return nil
}

// Back closes the front screen. It reports false when the stack is empty.
func (r *Router) Back() bool {
	r.mu.Lock()
	n := len(r.stack)
	if n == 0 {
		r.mu.Unlock()
		return false
	}
	front := r.stack[n-1]
	r.stack = r.stack[:n-1]
	var next Screen
	if n > 1 {
		next = r.stack[n-2]
	}
	r.mu.Unlock()

	front.Core().Pause()
	front.Core().Destroy()
	if next != nil {
		next.Core().Resume()
	}
	return true
}

func (r *Router) finish(s Screen) {
	if r.Top() == s {
		r.Back()
		return
	}
	r.lg.Warn("finish on a screen not in front", zap.String("screen", s.Core().Name()))
}

// Top returns the front screen, or nil.
func (r *Router) Top() Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *Router) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// Close destroys every screen, front first.
func (r *Router) Close() {
	for r.Back() {
	}
}
