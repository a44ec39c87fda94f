package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imkit/internal/bus"
	"imkit/internal/domain"
)

type recordingAnalytics struct {
	calls []string
}

func (a *recordingAnalytics) OnResume(s string) { a.calls = append(a.calls, "resume:"+s) }
func (a *recordingAnalytics) OnPause(s string)  { a.calls = append(a.calls, "pause:"+s) }

// recorder records the order the extension points run in, and the window state
// each one observes.
type recorder struct {
	*Base
	order      []string
	titleless  bool
	viewsReady bool
}

func (p *recorder) ContentLayout() Layout {
	p.order = append(p.order, "layout")
	w := p.Window().(*HeadlessWindow)
	p.titleless = w.HasFeature(FeatureNoTitle) && w.VolumeStream() == StreamMusic
	return Layout{Name: "recorder", Views: []ViewSpec{{ID: "label", Kind: KindText}}}
}

func (p *recorder) InitView() {
	p.order = append(p.order, "view")
	p.viewsReady = p.Window().FindView("label") != nil
}

func (p *recorder) InitData() { p.order = append(p.order, "data") }

func TestBase_CreateRunsExtensionPointsInOrder(t *testing.T) {
	w := NewHeadlessWindow()
	p := &recorder{Base: NewBase("recorder", w, domain.NewIntent("recorder"), nil, nil)}

	p.Create(p)

	assert.Equal(t, []string{"layout", "view", "data"}, p.order)
	assert.True(t, p.titleless, "feature and stream are set before the content view")
	assert.True(t, p.viewsReady)
	assert.Equal(t, "recorder", w.Layout().Name)
	assert.Equal(t, StateCreated, p.State())
}

func TestBase_ResumePauseBracketAnalytics(t *testing.T) {
	a := &recordingAnalytics{}
	p := &recorder{Base: NewBase("recorder", NewHeadlessWindow(), domain.Intent{}, a, nil)}
	p.Create(p)

	p.Resume()
	assert.Equal(t, StateResumed, p.State())
	p.Pause()
	assert.Equal(t, StatePaused, p.State())

	assert.Equal(t, []string{"resume:recorder", "pause:recorder"}, a.calls)
}

func TestBase_NilAnalytics(t *testing.T) {
	p := &recorder{Base: NewBase("recorder", NewHeadlessWindow(), domain.Intent{}, nil, nil)}
	assert.NotPanics(t, func() {
		p.Resume()
		p.Pause()
	})
}

func TestBase_DestroyRunsHooksInReverse(t *testing.T) {
	b := NewBase("x", NewHeadlessWindow(), domain.Intent{}, nil, nil)
	var order []int
	b.OnDestroy(func() { order = append(order, 1) })
	b.OnDestroy(func() { order = append(order, 2) })

	b.Destroy()
	assert.Equal(t, []int{2, 1}, order)
	assert.Equal(t, StateDestroyed, b.State())
}

func TestViewByID(t *testing.T) {
	w := NewHeadlessWindow()
	w.SetContentView(Layout{Views: []ViewSpec{
		{ID: "t", Kind: KindText},
		{ID: "b", Kind: KindBadge},
		{ID: "m", Kind: KindMap},
	}})

	assert.NotNil(t, ViewByID[*TextView](w, "t"))
	assert.NotNil(t, ViewByID[*BadgeView](w, "b"))
	assert.NotNil(t, ViewByID[*MapView](w, "m"))

	assert.PanicsWithValue(t, `screen: view "t" is *screen.TextView, not *screen.BadgeView`, func() {
		ViewByID[*BadgeView](w, "t")
	})
	assert.Panics(t, func() { ViewByID[*TextView](w, "missing") })
}

func TestBadgeView(t *testing.T) {
	b := &BadgeView{}
	assert.False(t, b.Visible())
	b.SetCount(3)
	assert.True(t, b.Visible())
	assert.Equal(t, 3, b.Count())
}

type pending struct {
	cb domain.LocationCallback
}

func (p *pending) TakePendingLocationCallback() domain.LocationCallback {
	cb := p.cb
	p.cb = nil
	return cb
}

type locationResult struct {
	got    *domain.LocationContent
	reason string
}

func (r *locationResult) OnSuccess(l domain.LocationContent) { r.got = &l }
func (r *locationResult) OnFailure(reason string)            { r.reason = reason }

func newRouter(t *testing.T) (*Router, *recordingAnalytics, *bus.EventBus, *pending) {
	t.Helper()
	a := &recordingAnalytics{}
	events := bus.NewEventBus(zap.NewNop())
	p := &pending{}
	r := NewRouter(a, zap.NewNop())
	r.Register(domain.ScreenHome, HomeFactory(events))
	r.Register(domain.ScreenProfile, ProfileFactory())
	r.Register(domain.ScreenLocation, LocationFactory(p))
	return r, a, events, p
}

func TestRouter_UnknownTarget(t *testing.T) {
	r, _, _, _ := newRouter(t)
	err := r.StartScreen(domain.NewIntent("settings"))
	assert.ErrorIs(t, err, ErrUnknownScreen)
	assert.Equal(t, 0, r.Depth())
}

func TestRouter_BackStack(t *testing.T) {
	r, a, _, _ := newRouter(t)

	require.NoError(t, r.StartScreen(domain.NewIntent(domain.ScreenHome)))
	require.NoError(t, r.StartScreen(domain.NewIntent(domain.ScreenProfile).
		Put(domain.ExtraUserName, "Bob").
		Put(domain.ExtraUserID, "bob")))
	assert.Equal(t, 2, r.Depth())

	prof, ok := r.Top().(*ProfileScreen)
	require.True(t, ok)
	assert.Equal(t, "Bob", prof.UserName())
	assert.Equal(t, "bob", prof.UserID())

	assert.True(t, r.Back())
	assert.Equal(t, StateDestroyed, prof.State())
	assert.IsType(t, &HomeScreen{}, r.Top())

	r.Close()
	assert.False(t, r.Back())

	assert.Equal(t, []string{
		"resume:home", "pause:home",
		"resume:profile", "pause:profile",
		"resume:home", "pause:home",
	}, a.calls)
}

func TestHomeScreen_BadgeFollowsBroadcast(t *testing.T) {
	r, _, events, _ := newRouter(t)
	require.NoError(t, r.StartScreen(domain.NewIntent(domain.ScreenHome).Put(domain.ExtraUnreadCount, 2)))
	home := r.Top().(*HomeScreen)
	assert.Equal(t, 2, home.Unread())

	events.Emit(bus.Event{Type: domain.ActionReceiveMessage, Payload: map[string]any{domain.ExtraUnreadCount: 5}})
	assert.Equal(t, 5, home.Unread())

	r.Back()
	events.Emit(bus.Event{Type: domain.ActionReceiveMessage, Payload: map[string]any{domain.ExtraUnreadCount: 9}})
	assert.Equal(t, 5, home.Unread(), "unsubscribed on destroy")
}

func TestLocationScreen_Display(t *testing.T) {
	r, _, _, _ := newRouter(t)
	loc := domain.LocationContent{Latitude: 31.2, Longitude: 121.5, POI: "Bund"}
	require.NoError(t, r.StartScreen(domain.NewIntent(domain.ScreenLocation).Put(domain.ExtraLocation, loc)))

	s := r.Top().(*LocationScreen)
	assert.False(t, s.Picking())
	m, ok := s.mapView.Marker()
	require.True(t, ok)
	assert.Equal(t, Marker{Latitude: 31.2, Longitude: 121.5, Title: "Bund"}, m)
	assert.Equal(t, "Bund", s.address.Text())

	assert.ErrorIs(t, s.Pick(loc), ErrNotPicker)
}

func TestLocationScreen_Pick(t *testing.T) {
	r, _, _, p := newRouter(t)
	res := &locationResult{}
	p.cb = res

	require.NoError(t, r.StartScreen(domain.NewIntent(domain.ScreenLocation)))
	s := r.Top().(*LocationScreen)
	require.True(t, s.Picking())

	loc := domain.LocationContent{Latitude: 1, Longitude: 2}
	require.NoError(t, s.Pick(loc))
	require.NotNil(t, res.got)
	assert.Equal(t, loc, *res.got)
	assert.Equal(t, "1.000000,2.000000", s.address.Text())
	assert.Equal(t, 0, r.Depth(), "picker closes itself")

	assert.ErrorIs(t, s.Pick(loc), ErrNoPendingPicker)
}

func TestLocationScreen_Cancel(t *testing.T) {
	r, _, _, p := newRouter(t)
	res := &locationResult{}
	p.cb = res

	require.NoError(t, r.StartScreen(domain.NewIntent(domain.ScreenLocation)))
	s := r.Top().(*LocationScreen)
	require.NoError(t, s.Cancel())
	assert.Equal(t, "cancelled", res.reason)
	assert.Nil(t, res.got)
}
