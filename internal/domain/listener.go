package domain

// Capability interfaces the messaging SDK calls into. Each callback family is
// its own interface so an SDK binding only needs the ones it uses.

// ReceiveMessageListener is notified of every inbound message. left is the
// number of messages still waiting to be pulled in the current batch.
type ReceiveMessageListener interface {
	OnReceived(msg Message, left int)
}

// SendMessageListener is notified after a locally composed message has been
// handed off, whether or not delivery succeeded.
type SendMessageListener interface {
	OnSent(msg Message)
}

// UserInfoProvider returns nil for unknown users.
type UserInfoProvider interface {
	UserInfo(userID string) *UserInfo
}

type FriendsProvider interface {
	Friends() []UserInfo
}

// GroupInfoProvider returns nil for unknown groups.
type GroupInfoProvider interface {
	GroupInfo(groupID string) *Group
}

// ConversationBehaviorListener intercepts clicks in the conversation UI.
// Returning true suppresses the SDK's default handling.
type ConversationBehaviorListener interface {
	OnUserPortraitClick(nav Navigator, convType ConversationType, user UserInfo) bool
	OnMessageClick(nav Navigator, msg Message) bool
}

type ConnectionStatusListener interface {
	OnConnectionStatusChanged(status ConnectionStatus)
}

// LocationCallback receives the outcome of a location pick.
type LocationCallback interface {
	OnSuccess(loc LocationContent)
	OnFailure(reason string)
}

// LocationProvider is asked to open a location picker. The picker must
// eventually resolve cb.
type LocationProvider interface {
	OnStartLocation(nav Navigator, cb LocationCallback)
}
