package screen

import (
	"fmt"
	"sync"
)

type Feature int

const (
	FeatureNoTitle Feature = iota + 1
	FeatureProgress
)

// Stream is the audio stream the hardware volume keys adjust while a screen
// is in front.
type Stream int

const (
	StreamDefault Stream = iota
	StreamRing
	StreamMusic
)

type ViewID string

type ViewKind int

const (
	KindText ViewKind = iota
	KindBadge
	KindMap
)

// ViewSpec declares one view in a Layout.
type ViewSpec struct {
	ID   ViewID
	Kind ViewKind
}

// Layout is a declarative content view. SetContentView inflates it.
type Layout struct {
	Name  string
	Views []ViewSpec
}

// Window is the surface a screen draws into.
type Window interface {
	RequestFeature(f Feature)
	SetVolumeControlStream(s Stream)
	SetContentView(l Layout)
	FindView(id ViewID) any
}

// HeadlessWindow is an in-memory Window. Inflated views are real values
// tests and the CLI can inspect.
type HeadlessWindow struct {
	features map[Feature]bool
	stream   Stream
	layout   Layout
	views    map[ViewID]any
}

func NewHeadlessWindow() *HeadlessWindow {
	return &HeadlessWindow{
		features: make(map[Feature]bool),
		views:    make(map[ViewID]any),
	}
}

func (w *HeadlessWindow) RequestFeature(f Feature)        { w.features[f] = true }
func (w *HeadlessWindow) SetVolumeControlStream(s Stream) { w.stream = s }

func (w *HeadlessWindow) SetContentView(l Layout) {
	w.layout = l
	w.views = make(map[ViewID]any, len(l.Views))
	for _, v := range l.Views {
		w.views[v.ID] = inflate(v.Kind)
	}
}

// FindView returns the inflated view, or nil.
func (w *HeadlessWindow) FindView(id ViewID) any { return w.views[id] }

func (w *HeadlessWindow) HasFeature(f Feature) bool { return w.features[f] }
func (w *HeadlessWindow) VolumeStream() Stream      { return w.stream }
func (w *HeadlessWindow) Layout() Layout            { return w.layout }

func inflate(k ViewKind) any {
	switch k {
	case KindBadge:
		return &BadgeView{}
	case KindMap:
		return &MapView{}
	default:
		return &TextView{}
	}
}

// ViewByID looks up a view and asserts its type. A missing view or a type
// mismatch is a programming error and panics.
func ViewByID[T any](w Window, id ViewID) T {
	v := w.FindView(id)
	t, ok := v.(T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("screen: view %q is %T, not %T", id, v, zero))
	}
	return t
}

type TextView struct {
	mu   sync.RWMutex
	text string
}

func (v *TextView) SetText(s string) {
	v.mu.Lock()
	v.text = s
	v.mu.Unlock()
}

func (v *TextView) Text() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.text
}

// BadgeView shows a count; zero hides it.
type BadgeView struct {
	mu    sync.RWMutex
	count int
}

func (v *BadgeView) SetCount(n int) {
	v.mu.Lock()
	v.count = n
	v.mu.Unlock()
}

func (v *BadgeView) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}

func (v *BadgeView) Visible() bool { return v.Count() > 0 }

type MapView struct {
	mu      sync.RWMutex
	marker  *Marker
	picking bool
}

type Marker struct {
	Latitude  float64
	Longitude float64
	Title     string
}

func (v *MapView) SetMarker(m Marker) {
	v.mu.Lock()
	v.marker = &m
	v.mu.Unlock()
}

// Marker returns the current marker, if any.
func (v *MapView) Marker() (Marker, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.marker == nil {
		return Marker{}, false
	}
	return *v.marker, true
}

func (v *MapView) SetPicking(p bool) {
	v.mu.Lock()
	v.picking = p
	v.mu.Unlock()
}

func (v *MapView) Picking() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.picking
}
