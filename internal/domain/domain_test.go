package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentKinds(t *testing.T) {
	tests := []struct {
		content Content
		kind    string
		object  string
	}{
		{TextContent{}, "text", ObjectNameText},
		{ImageContent{}, "image", ObjectNameImage},
		{VoiceContent{}, "voice", ObjectNameVoice},
		{RichContent{}, "rich_content", ObjectNameRichContent},
		{GroupInvitationContent{}, "group_invitation", ObjectNameGroupInvitation},
		{LocationContent{}, "location", ObjectNameLocation},
		{UnknownContent{Name: "App:Card"}, "unknown", "App:Card"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.content.Kind().String())
		assert.Equal(t, tt.object, tt.content.ObjectName())
	}
}

func TestMessageObjectName_NilContent(t *testing.T) {
	assert.Equal(t, "", Message{}.ObjectName())
	assert.Equal(t, ObjectNameText, Message{Content: TextContent{}}.ObjectName())
}

func TestParseConversationType(t *testing.T) {
	for c := ConversationPrivate; c <= ConversationSystem; c++ {
		assert.Equal(t, c, ParseConversationType(c.String()))
	}
	assert.Equal(t, ConversationPrivate, ParseConversationType(""))
	assert.Equal(t, "none", ConversationType(0).String())
}

func TestConnectionStatusString(t *testing.T) {
	assert.Equal(t, "NETWORK_UNAVAILABLE", StatusNetworkUnavailable.String())
	assert.Equal(t, "UNKNOWN", ConnectionStatus(99).String())
}

func TestIntentExtras(t *testing.T) {
	in := NewIntent(ScreenProfile).Put(ExtraUserName, "Bob").Put(ExtraUnreadCount, 3)
	assert.Equal(t, ScreenProfile, in.Target)
	assert.Equal(t, "Bob", in.StringExtra(ExtraUserName))
	assert.Equal(t, 3, in.IntExtra(ExtraUnreadCount))
	assert.Equal(t, "", in.StringExtra(ExtraUnreadCount), "wrong type reads as zero")
	assert.Equal(t, 0, in.IntExtra("missing"))

	var zero Intent
	zero = zero.Put("k", "v")
	assert.Equal(t, "v", zero.StringExtra("k"))

	b := NewBroadcast(ActionReceiveMessage)
	assert.Equal(t, ActionReceiveMessage, b.Action)
	assert.Empty(t, b.Target)
}
