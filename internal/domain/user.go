package domain

type UserInfo struct {
	UserID      string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	PortraitURI string `yaml:"portrait,omitempty" json:"portrait,omitempty"`
}

type Group struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	PortraitURI string `yaml:"portrait,omitempty" json:"portrait,omitempty"`
}

type ConversationType int

const (
	ConversationPrivate ConversationType = iota + 1
	ConversationDiscussion
	ConversationGroup
	ConversationChatroom
	ConversationCustomerService
	ConversationSystem
)

func (c ConversationType) String() string {
	switch c {
	case ConversationPrivate:
		return "private"
	case ConversationDiscussion:
		return "discussion"
	case ConversationGroup:
		return "group"
	case ConversationChatroom:
		return "chatroom"
	case ConversationCustomerService:
		return "customer_service"
	case ConversationSystem:
		return "system"
	default:
		return "none"
	}
}

// ParseConversationType is the inverse of String. Unrecognised names map to
// ConversationPrivate.
func ParseConversationType(s string) ConversationType {
	for c := ConversationPrivate; c <= ConversationSystem; c++ {
		if c.String() == s {
			return c
		}
	}
	return ConversationPrivate
}

type ConnectionStatus int

const (
	StatusConnecting ConnectionStatus = iota
	StatusConnected
	StatusDisconnected
	StatusKickedOffline // another device logged in with the same user
	StatusNetworkUnavailable
	StatusTokenIncorrect
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusKickedOffline:
		return "KICKED_OFFLINE_BY_OTHER_CLIENT"
	case StatusNetworkUnavailable:
		return "NETWORK_UNAVAILABLE"
	case StatusTokenIncorrect:
		return "TOKEN_INCORRECT"
	default:
		return "UNKNOWN"
	}
}
