package domain

// Screen targets.
const (
	ScreenHome     = "home"
	ScreenProfile  = "profile"
	ScreenLocation = "location"
)

// Intent extra keys.
const (
	ExtraUserName    = "user_name"
	ExtraUserID      = "user_id"
	ExtraLocation    = "location"
	ExtraUnreadCount = "unread_count"
)

// ActionReceiveMessage is broadcast after every inbound message.
const ActionReceiveMessage = "imkit.action.RECEIVE_MESSAGE"

// Intent describes either a screen to open (Target) or a broadcast (Action).
type Intent struct {
	Action string
	Target string
	Extras map[string]any
}

func NewIntent(target string) Intent {
	return Intent{Target: target, Extras: make(map[string]any)}
}

func NewBroadcast(action string) Intent {
	return Intent{Action: action, Extras: make(map[string]any)}
}

// Put sets an extra and returns the intent for chaining.
func (i Intent) Put(key string, value any) Intent {
	if i.Extras == nil {
		i.Extras = make(map[string]any)
	}
	i.Extras[key] = value
	return i
}

// StringExtra returns the extra as a string, or "" if absent.
func (i Intent) StringExtra(key string) string {
	s, _ := i.Extras[key].(string)
	return s
}

func (i Intent) IntExtra(key string) int {
	n, _ := i.Extras[key].(int)
	return n
}

// Navigator opens screens.
type Navigator interface {
	StartScreen(in Intent) error
}

// Broadcaster delivers process-local broadcasts.
type Broadcaster interface {
	SendBroadcast(in Intent)
}

// Context is the application-wide handle the event adapter holds.
type Context interface {
	Navigator
	Broadcaster
}
