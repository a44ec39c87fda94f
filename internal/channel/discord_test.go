package channel

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imkit/internal/domain"
)

func discordMsg(m discordgo.Message) *discordgo.MessageCreate {
	if m.Author == nil {
		m.Author = &discordgo.User{ID: "u1", Username: "bob"}
	}
	if m.ChannelID == "" {
		m.ChannelID = "c1"
	}
	return &discordgo.MessageCreate{Message: &m}
}

func TestMessageFromDiscord(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := messageFromDiscord(discordMsg(discordgo.Message{ID: "m1", GuildID: "g1", Content: "hi", Timestamp: ts}).Message)

	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, domain.ConversationGroup, got.ConversationType)
	assert.Equal(t, "c1", got.TargetID)
	assert.Equal(t, "u1", got.SenderID)
	assert.Equal(t, "discord", got.Channel)
	assert.Equal(t, ts, got.SentAt)
	assert.Equal(t, domain.TextContent{Content: "hi", PushContent: "hi"}, got.Content)

	dm := messageFromDiscord(discordMsg(discordgo.Message{Content: "x"}).Message)
	assert.Equal(t, domain.ConversationPrivate, dm.ConversationType)
}

func TestDiscordContent(t *testing.T) {
	tests := []struct {
		name string
		msg  discordgo.Message
		want domain.Content
	}{
		{
			name: "image attachment",
			msg: discordgo.Message{Attachments: []*discordgo.MessageAttachment{
				{URL: "https://cdn/x.png", ProxyURL: "https://proxy/x.png", ContentType: "image/png"},
			}},
			want: domain.ImageContent{RemoteURI: "https://cdn/x.png", ThumbURI: "https://proxy/x.png"},
		},
		{
			name: "voice attachment",
			msg: discordgo.Message{Attachments: []*discordgo.MessageAttachment{
				{URL: "https://cdn/v.ogg", ContentType: "audio/ogg"},
			}},
			want: domain.VoiceContent{URI: "https://cdn/v.ogg"},
		},
		{
			name: "member join",
			msg:  discordgo.Message{Type: discordgo.MessageTypeGuildMemberJoin},
			want: domain.GroupInvitationContent{Operation: "Add", Message: "bob joined"},
		},
		{
			name: "embed only",
			msg:  discordgo.Message{},
			want: domain.UnknownContent{Name: ObjectNameDiscordOther},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, discordContent(discordMsg(tt.msg).Message))
		})
	}
}

func TestDiscord_HandleMessageFilters(t *testing.T) {
	d := NewDiscord(DiscordConfig{GuildID: "g1"})
	sink := &fakeSink{}

	d.handleMessage(sink, "bot", discordMsg(discordgo.Message{GuildID: "g1", Content: "ok"}))
	d.handleMessage(sink, "bot", discordMsg(discordgo.Message{GuildID: "other", Content: "wrong guild"}))
	d.handleMessage(sink, "bot", discordMsg(discordgo.Message{Content: "dm"}))
	d.handleMessage(sink, "bot", discordMsg(discordgo.Message{Author: &discordgo.User{ID: "bot"}, Content: "self"}))
	d.handleMessage(sink, "bot", &discordgo.MessageCreate{})

	msgs := sink.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ok", msgs[0].Content.(domain.TextContent).Content)
	assert.Equal(t, "dm", msgs[1].Content.(domain.TextContent).Content)
}

type sentText struct{ target, text string }

func newDiscordOutbound() (*Discord, *[]sentText) {
	d := NewDiscord(DiscordConfig{})
	d.limiter = NewRateLimiter(100, 100)
	var sent []sentText
	d.send = func(channelID, content string) error {
		sent = append(sent, sentText{channelID, content})
		return nil
	}
	return d, &sent
}

func TestDiscord_SendOutbound(t *testing.T) {
	d, sent := newDiscordOutbound()

	d.sendOutbound(domain.Message{TargetID: "c1", Content: domain.TextContent{Content: "hello"}})
	d.sendOutbound(domain.Message{TargetID: "c1", Content: domain.LocationContent{Latitude: 1.5, Longitude: -2, POI: "Cafe"}})
	d.sendOutbound(domain.Message{TargetID: "c1", Content: domain.UnknownContent{Name: "App:Card"}})
	d.sendOutbound(domain.Message{TargetID: "c1", Content: domain.TextContent{}})

	assert.Equal(t, []sentText{
		{"c1", "hello"},
		{"c1", "Cafe https://maps.google.com/?q=1.5,-2"},
		{"c1", "[App:Card]"},
	}, *sent)
}

func TestDiscord_SendOutboundChunks(t *testing.T) {
	d, sent := newDiscordOutbound()
	d.sendOutbound(domain.Message{TargetID: "c1", Content: domain.TextContent{Content: strings.Repeat("x", discordMaxMsgLen+1)}})
	require.Len(t, *sent, 2)
	assert.Len(t, (*sent)[1].text, 1)
}

func TestDiscord_SendBeforeConnect(t *testing.T) {
	d := NewDiscord(DiscordConfig{})
	assert.NotPanics(t, func() {
		d.sendOutbound(domain.Message{TargetID: "c1", Content: domain.TextContent{Content: "x"}})
	})
}

func TestDiscord_StartFailureReportsStatus(t *testing.T) {
	d := NewDiscord(DiscordConfig{Token: "bad"})
	d.open = func(string) (*discordgo.Session, error) { return nil, errors.New("invalid token") }
	sink := &fakeSink{}

	err := d.Start(t.Context(), sink)
	assert.ErrorContains(t, err, "discord connect")
	assert.Equal(t, []domain.ConnectionStatus{domain.StatusNetworkUnavailable}, sink.statuses)
}
