package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"imkit/internal/domain"
)

const (
	discordName      = "discord"
	discordMaxMsgLen = 2000

	ObjectNameDiscordOther = "DC:Other"
)

// Discord bridges a Discord bot into the SDK client.
type Discord struct {
	token   string
	guildID string // empty accepts every guild and DMs

	send    func(channelID, content string) error
	out     *outbox
	limiter *RateLimiter
	ctx     context.Context
	lg      *zap.Logger
	open    func(token string) (*discordgo.Session, error)
}

type DiscordConfig struct {
	Token   string
	GuildID string
	Logger  *zap.Logger
}

var _ domain.Channel = (*Discord)(nil)

func NewDiscord(cfg DiscordConfig) *Discord {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	d := &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		limiter: NewRateLimiter(5, 5),
		ctx:     context.Background(),
		lg:      lg.Named(discordName),
		open:    openDiscord,
	}
	d.out = newOutbox(d.sendOutbound, d.lg)
	return d
}

func openDiscord(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent | discordgo.IntentsGuildMembers
	return s, nil
}

func (d *Discord) Name() string { return discordName }

// Start opens the gateway session and relays messages until ctx ends.
func (d *Discord) Start(ctx context.Context, sink domain.MessageSink) error {
	session, err := d.open(d.token)
	if err == nil {
		session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			d.handleMessage(sink, selfUser(s).ID, m)
		})
		err = session.Open()
	}
	if err != nil {
		if r, ok := sink.(statusReporter); ok {
			r.NotifyStatus(domain.StatusNetworkUnavailable)
		}
		return fmt.Errorf("discord connect: %w", err)
	}

	d.ctx = ctx
	d.send = func(channelID, content string) error {
		_, err := session.ChannelMessageSend(channelID, content)
		return err
	}
	go d.out.run(ctx)
	sink.OnOutbound(discordName, d.out.enqueue)
	d.lg.Info("discord bot connected", zap.String("user", selfUser(session).Username))

	<-ctx.Done()
	d.lg.Info("discord bot disconnecting")
	return session.Close()
}

// selfUser is the bot's own account, or a zero user before the Ready event.
func selfUser(s *discordgo.Session) *discordgo.User {
	if s.State == nil || s.State.User == nil {
		return &discordgo.User{}
	}
	return s.State.User
}

func (d *Discord) Stop() error {
	return nil
}

func (d *Discord) handleMessage(sink domain.MessageSink, selfID string, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || m.Author.ID == selfID {
		return
	}
	if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
		return
	}
	msg := messageFromDiscord(m.Message)
	if err := sink.Deliver(msg); err != nil {
		d.lg.Error("deliver discord message", zap.String("channel_id", m.ChannelID), zap.Error(err))
	}
}

func messageFromDiscord(m *discordgo.Message) domain.Message {
	msg := domain.Message{
		ID:               m.ID,
		ConversationType: domain.ConversationPrivate,
		TargetID:         m.ChannelID,
		Channel:          discordName,
		SentAt:           m.Timestamp,
		Content:          discordContent(m),
	}
	if m.GuildID != "" {
		msg.ConversationType = domain.ConversationGroup
	}
	if m.Author != nil {
		msg.SenderID = m.Author.ID
	}
	return msg
}

func discordContent(m *discordgo.Message) domain.Content {
	if m.Type == discordgo.MessageTypeGuildMemberJoin && m.Author != nil {
		return domain.GroupInvitationContent{Operation: "Add", Message: m.Author.Username + " joined"}
	}
	for _, a := range m.Attachments {
		switch {
		case strings.HasPrefix(a.ContentType, "image/"):
			return domain.ImageContent{RemoteURI: a.URL, ThumbURI: a.ProxyURL}
		case strings.HasPrefix(a.ContentType, "audio/"):
			return domain.VoiceContent{URI: a.URL}
		}
	}
	if m.Content != "" {
		return domain.TextContent{Content: m.Content, PushContent: pushPreview(m.Content)}
	}
	return domain.UnknownContent{Name: ObjectNameDiscordOther}
}

func (d *Discord) sendOutbound(msg domain.Message) {
	if d.send == nil {
		d.lg.Warn("discord outbound before connect", zap.String("channel_id", msg.TargetID))
		return
	}

	var text string
	switch c := msg.Content.(type) {
	case domain.TextContent:
		text = c.Content
	case domain.ImageContent:
		text = c.RemoteURI
	case domain.LocationContent:
		text = mapsLink(c)
	case domain.RichContent:
		text = c.Title + "\n" + c.Content
	default:
		text = "[" + msg.ObjectName() + "]"
	}
	if text == "" {
		return
	}

	for _, chunk := range splitMessage(text, discordMaxMsgLen) {
		if err := d.limiter.Wait(d.ctx); err != nil {
			d.lg.Warn("discord send abandoned", zap.Error(err))
			return
		}
		if err := d.send(msg.TargetID, chunk); err != nil {
			d.lg.Error("discord send failed", zap.String("channel_id", msg.TargetID), zap.Error(err))
		}
	}
}

// mapsLink renders a location for transports without a native location type.
func mapsLink(c domain.LocationContent) string {
	link := "https://maps.google.com/?q=" +
		strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
	if c.POI != "" {
		return c.POI + " " + link
	}
	return link
}
