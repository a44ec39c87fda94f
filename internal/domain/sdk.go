package domain

// ProviderRegistry is the part of the SDK surface that is usable as soon as
// the SDK is initialised.
type ProviderRegistry interface {
	SetUserInfoProvider(p UserInfoProvider, cache bool)
	SetFriendsProvider(p FriendsProvider)
	SetGroupInfoProvider(p GroupInfoProvider)
	SetConversationBehaviorListener(l ConversationBehaviorListener)
	SetLocationProvider(p LocationProvider)
}

// SessionRegistry is only meaningful after a successful connect.
type SessionRegistry interface {
	SetReceiveMessageListener(l ReceiveMessageListener)
	SetSendMessageListener(l SendMessageListener)
	SetConnectionStatusListener(l ConnectionStatusListener)
	TotalUnreadCount() int
}

// SDK is the full extension surface a host application binds to.
type SDK interface {
	ProviderRegistry
	SessionRegistry
}
