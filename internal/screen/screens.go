package screen

import (
	"errors"
	"strconv"

	"go.uber.org/zap"

	"imkit/internal/bus"
	"imkit/internal/domain"
)

const (
	ViewTitle       ViewID = "title"
	ViewUnreadBadge ViewID = "unread_badge"
	ViewUserName    ViewID = "user_name"
	ViewUserID      ViewID = "user_id"
	ViewMap         ViewID = "map"
	ViewAddress     ViewID = "address"
)

// HomeScreen shows the total unread count, kept current by the
// receive-message broadcast.
type HomeScreen struct {
	*Base
	events *bus.EventBus
	title  *TextView
	badge  *BadgeView
}

func HomeFactory(events *bus.EventBus) Factory {
	return func(b *Base) Screen { return &HomeScreen{Base: b, events: events} }
}

func (s *HomeScreen) ContentLayout() Layout {
	return Layout{Name: "home", Views: []ViewSpec{
		{ID: ViewTitle, Kind: KindText},
		{ID: ViewUnreadBadge, Kind: KindBadge},
	}}
}

func (s *HomeScreen) InitView() {
	s.title = ViewByID[*TextView](s.Window(), ViewTitle)
	s.badge = ViewByID[*BadgeView](s.Window(), ViewUnreadBadge)
}

func (s *HomeScreen) InitData() {
	s.title.SetText("Conversations")
	s.badge.SetCount(s.Intent().IntExtra(domain.ExtraUnreadCount))

	id := s.events.On(domain.ActionReceiveMessage, func(e bus.Event) {
		n, _ := e.Payload[domain.ExtraUnreadCount].(int)
		s.badge.SetCount(n)
	})
	s.OnDestroy(func() { s.events.Off(domain.ActionReceiveMessage, id) })
}

func (s *HomeScreen) Unread() int { return s.badge.Count() }

type ProfileScreen struct {
	*Base
	name *TextView
	id   *TextView
}

func ProfileFactory() Factory {
	return func(b *Base) Screen { return &ProfileScreen{Base: b} }
}

func (s *ProfileScreen) ContentLayout() Layout {
	return Layout{Name: "profile", Views: []ViewSpec{
		{ID: ViewUserName, Kind: KindText},
		{ID: ViewUserID, Kind: KindText},
	}}
}

func (s *ProfileScreen) InitView() {
	s.name = ViewByID[*TextView](s.Window(), ViewUserName)
	s.id = ViewByID[*TextView](s.Window(), ViewUserID)
}

func (s *ProfileScreen) InitData() {
	s.name.SetText(s.Intent().StringExtra(domain.ExtraUserName))
	s.id.SetText(s.Intent().StringExtra(domain.ExtraUserID))
}

func (s *ProfileScreen) UserName() string { return s.name.Text() }
func (s *ProfileScreen) UserID() string   { return s.id.Text() }

var (
	ErrNotPicker       = errors.New("screen: location screen is in display mode")
	ErrNoPendingPicker = errors.New("screen: no pending location request")
)

// PendingLocations hands over the callback parked by the location provider.
type PendingLocations interface {
	TakePendingLocationCallback() domain.LocationCallback
}

// LocationScreen displays the location passed in the launch intent, or acts
// as the picker for a pending location request when there is none.
type LocationScreen struct {
	*Base
	pending PendingLocations
	mapView *MapView
	address *TextView
}

func LocationFactory(p PendingLocations) Factory {
	return func(b *Base) Screen { return &LocationScreen{Base: b, pending: p} }
}

func (s *LocationScreen) ContentLayout() Layout {
	return Layout{Name: "location", Views: []ViewSpec{
		{ID: ViewMap, Kind: KindMap},
		{ID: ViewAddress, Kind: KindText},
	}}
}

func (s *LocationScreen) InitView() {
	s.mapView = ViewByID[*MapView](s.Window(), ViewMap)
	s.address = ViewByID[*TextView](s.Window(), ViewAddress)
}

func (s *LocationScreen) InitData() {
	loc, ok := s.Intent().Extras[domain.ExtraLocation].(domain.LocationContent)
	if !ok {
		s.mapView.SetPicking(true)
		s.address.SetText("Pick a location")
		return
	}
	s.show(loc)
}

func (s *LocationScreen) show(loc domain.LocationContent) {
	s.mapView.SetMarker(Marker{Latitude: loc.Latitude, Longitude: loc.Longitude, Title: loc.POI})
	addr := loc.POI
	if addr == "" {
		addr = strconv.FormatFloat(loc.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(loc.Longitude, 'f', 6, 64)
	}
	s.address.SetText(addr)
}

func (s *LocationScreen) Picking() bool { return s.mapView.Picking() }

// Pick resolves the pending request with loc and closes the screen.
func (s *LocationScreen) Pick(loc domain.LocationContent) error {
	cb, err := s.take()
	if err != nil {
		return err
	}
	s.show(loc)
	cb.OnSuccess(loc)
	s.Logger().Info("location picked", zap.String("poi", loc.POI))
	s.Finish()
	return nil
}

// Cancel fails the pending request and closes the screen.
func (s *LocationScreen) Cancel() error {
	cb, err := s.take()
	if err != nil {
		return err
	}
	cb.OnFailure("cancelled")
	s.Finish()
	return nil
}

func (s *LocationScreen) take() (domain.LocationCallback, error) {
	if !s.Picking() {
		return nil, ErrNotPicker
	}
	cb := s.pending.TakePendingLocationCallback()
	if cb == nil {
		return nil, ErrNoPendingPicker
	}
	return cb, nil
}
