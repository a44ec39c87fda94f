package domain

import "time"

// Object names identify content variants on the wire.
const (
	ObjectNameText            = "RC:TxtMsg"
	ObjectNameImage           = "RC:ImgMsg"
	ObjectNameVoice           = "RC:VcMsg"
	ObjectNameRichContent     = "RC:ImgTextMsg"
	ObjectNameGroupInvitation = "RC:GrpInvNtf"
	ObjectNameLocation        = "RC:LBSMsg"
)

// ContentKind tags a Content variant.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindText
	KindImage
	KindVoice
	KindRichContent
	KindGroupInvitation
	KindLocation
)

func (k ContentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVoice:
		return "voice"
	case KindRichContent:
		return "rich_content"
	case KindGroupInvitation:
		return "group_invitation"
	case KindLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Content is the payload of a Message. The set of implementations is closed;
// anything the host does not recognise arrives as UnknownContent.
type Content interface {
	Kind() ContentKind
	ObjectName() string
	sealed()
}

type TextContent struct {
	Content     string `yaml:"content" json:"content"`
	PushContent string `yaml:"pushContent,omitempty" json:"pushContent,omitempty"`
	Extra       string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

type ImageContent struct {
	RemoteURI string `yaml:"remoteUri" json:"remoteUri"`
	ThumbURI  string `yaml:"thumbUri,omitempty" json:"thumbUri,omitempty"`
}

type VoiceContent struct {
	URI      string        `yaml:"uri" json:"uri"`
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// RichContent is an image-and-text card.
type RichContent struct {
	Title    string `yaml:"title" json:"title"`
	Content  string `yaml:"content" json:"content"`
	ImageURL string `yaml:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Extra    string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// GroupInvitationContent is a notification that someone was invited to,
// or joined, a group.
type GroupInvitationContent struct {
	Operation string `yaml:"operation" json:"operation"`
	Message   string `yaml:"message" json:"message"`
}

type LocationContent struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	POI       string  `yaml:"poi" json:"poi"`
	ImageURI  string  `yaml:"imageUri,omitempty" json:"imageUri,omitempty"`
}

// UnknownContent carries a variant the host has no type for.
type UnknownContent struct {
	Name string
	Raw  []byte
}

func (TextContent) Kind() ContentKind            { return KindText }
func (ImageContent) Kind() ContentKind           { return KindImage }
func (VoiceContent) Kind() ContentKind           { return KindVoice }
func (RichContent) Kind() ContentKind            { return KindRichContent }
func (GroupInvitationContent) Kind() ContentKind { return KindGroupInvitation }
func (LocationContent) Kind() ContentKind        { return KindLocation }
func (UnknownContent) Kind() ContentKind         { return KindUnknown }

func (TextContent) ObjectName() string            { return ObjectNameText }
func (ImageContent) ObjectName() string           { return ObjectNameImage }
func (VoiceContent) ObjectName() string           { return ObjectNameVoice }
func (RichContent) ObjectName() string            { return ObjectNameRichContent }
func (GroupInvitationContent) ObjectName() string { return ObjectNameGroupInvitation }
func (LocationContent) ObjectName() string        { return ObjectNameLocation }
func (u UnknownContent) ObjectName() string       { return u.Name }

func (TextContent) sealed()            {}
func (ImageContent) sealed()           {}
func (VoiceContent) sealed()           {}
func (RichContent) sealed()            {}
func (GroupInvitationContent) sealed() {}
func (LocationContent) sealed()        {}
func (UnknownContent) sealed()         {}

// Message is a single chat message as surfaced by the SDK.
type Message struct {
	ID               string
	ConversationType ConversationType
	TargetID         string // peer user, group or chatroom id
	SenderID         string
	Channel          string // transport the message arrived on or leaves by; "" is local
	SentAt           time.Time
	Content          Content
}

// ObjectName returns the content's object name, or "" if there is no content.
func (m Message) ObjectName() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.ObjectName()
}
