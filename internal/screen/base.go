// Package screen is a headless screen runtime: a template-method Base that
// fixes how every screen is built and instrumented, a Router that keeps the
// back stack, and the demo's concrete screens.
package screen

import (
	"go.uber.org/zap"

	"imkit/internal/domain"
)

// Screen is implemented by concrete screens, which embed *Base and supply
// the three extension points.
type Screen interface {
	ContentLayout() Layout
	InitView()
	InitData()
	Core() *Base
}

// Analytics receives session begin and end for each screen.
type Analytics interface {
	OnResume(screen string)
	OnPause(screen string)
}

type State int

const (
	StateInitial State = iota
	StateCreated
	StateResumed
	StatePaused
	StateDestroyed
)

// Base owns the screen's window, launch intent and lifecycle state.
type Base struct {
	name      string
	win       Window
	intent    domain.Intent
	analytics Analytics
	lg        *zap.Logger

	state     State
	onDestroy []func()
	finish    func()
}

func NewBase(name string, win Window, in domain.Intent, a Analytics, lg *zap.Logger) *Base {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Base{
		name:      name,
		win:       win,
		intent:    in,
		analytics: a,
		lg:        lg.Named("screen").With(zap.String("screen", name)),
	}
}

func (b *Base) Core() *Base           { return b }
func (b *Base) Name() string          { return b.name }
func (b *Base) Window() Window        { return b.win }
func (b *Base) Intent() domain.Intent { return b.intent }
func (b *Base) State() State          { return b.state }
func (b *Base) Logger() *zap.Logger   { return b.lg }
func (b *Base) OnDestroy(fn func())   { b.onDestroy = append(b.onDestroy, fn) }
func (b *Base) setFinisher(fn func()) { b.finish = fn }

// Create builds s: no title bar, volume keys on the music stream, content
// view from s, then s.InitView and s.InitData in that order.
func (b *Base) Create(s Screen) {
	b.win.RequestFeature(FeatureNoTitle)
	b.win.SetVolumeControlStream(StreamMusic)
	b.win.SetContentView(s.ContentLayout())
	s.InitView()
	s.InitData()
	b.state = StateCreated
	b.lg.Debug("created")
}

func (b *Base) Resume() {
	if b.analytics != nil {
		b.analytics.OnResume(b.name)
	}
	b.state = StateResumed
}

func (b *Base) Pause() {
	if b.analytics != nil {
		b.analytics.OnPause(b.name)
	}
	b.state = StatePaused
}

func (b *Base) Destroy() {
	for i := len(b.onDestroy) - 1; i >= 0; i-- {
		b.onDestroy[i]()
	}
	b.onDestroy = nil
	b.state = StateDestroyed
	b.lg.Debug("destroyed")
}

// Finish asks the router to close this screen.
func (b *Base) Finish() {
	if b.finish != nil {
		b.finish()
	}
}
