package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"imkit/internal/domain"
)

const (
	slackName      = "slack"
	slackMaxMsgLen = 4000

	ObjectNameSlackOther = "SL:Other"
)

// Slack bridges a Slack app into the SDK client over Socket Mode.
type Slack struct {
	botToken string
	appToken string
	botUID   string

	post    func(channelID, text string) error
	out     *outbox
	limiter *RateLimiter
	ctx     context.Context
	lg      *zap.Logger
}

type SlackConfig struct {
	BotToken string
	AppToken string // xapp- token for Socket Mode
	Logger   *zap.Logger
}

var _ domain.Channel = (*Slack)(nil)

func NewSlack(cfg SlackConfig) *Slack {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Slack{
		botToken: cfg.BotToken,
		appToken: cfg.AppToken,
		limiter:  NewRateLimiter(1, 1),
		ctx:      context.Background(),
		lg:       lg.Named(slackName),
	}
	s.out = newOutbox(s.sendOutbound, s.lg)
	return s
}

func (s *Slack) Name() string { return slackName }

// Start authenticates, then runs Socket Mode until ctx ends.
func (s *Slack) Start(ctx context.Context, sink domain.MessageSink) error {
	api := slack.New(s.botToken, slack.OptionAppLevelToken(s.appToken))

	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		if r, ok := sink.(statusReporter); ok {
			r.NotifyStatus(domain.StatusNetworkUnavailable)
		}
		return fmt.Errorf("slack auth: %w", err)
	}
	s.botUID = auth.UserID
	s.ctx = ctx
	s.post = func(channelID, text string) error {
		_, _, err := api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
		return err
	}
	go s.out.run(ctx)
	sink.OnOutbound(slackName, s.out.enqueue)
	s.lg.Info("slack bot connected", zap.String("user", auth.User), zap.String("user_id", auth.UserID))

	client := socketmode.New(api)
	go func() {
		for evt := range client.Events {
			if evt.Request != nil {
				client.Ack(*evt.Request)
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			if ev, ok := evt.Data.(slackevents.EventsAPIEvent); ok {
				s.handleEvent(sink, ev)
			}
		}
	}()

	if err := client.RunContext(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("slack socket mode: %w", err)
	}
	s.lg.Info("slack bot disconnecting")
	return nil
}

func (s *Slack) Stop() error {
	return nil
}

func (s *Slack) handleEvent(sink domain.MessageSink, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	var msg domain.Message
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.User == "" || ev.User == s.botUID || ev.BotID != "" {
			return
		}
		m, ok := messageFromSlack(ev)
		if !ok {
			return
		}
		msg = m
	case *slackevents.AppMentionEvent:
		if ev.User == s.botUID {
			return
		}
		text := ev.Text
		if idx := strings.Index(text, ">"); idx >= 0 {
			text = strings.TrimSpace(text[idx+1:])
		}
		msg = domain.Message{
			ID:               ev.TimeStamp,
			ConversationType: domain.ConversationGroup,
			TargetID:         ev.Channel,
			SenderID:         ev.User,
			Channel:          slackName,
			SentAt:           slackTime(ev.TimeStamp),
			Content:          domain.TextContent{Content: text, PushContent: pushPreview(text)},
		}
	default:
		return
	}

	if err := sink.Deliver(msg); err != nil {
		s.lg.Error("deliver slack message", zap.String("channel_id", msg.TargetID), zap.Error(err))
	}
}

// messageFromSlack maps a message event. Edits, deletions and other
// bookkeeping subtypes report false.
func messageFromSlack(ev *slackevents.MessageEvent) (domain.Message, bool) {
	msg := domain.Message{
		ID:               ev.TimeStamp,
		ConversationType: slackConversationType(ev.ChannelType),
		TargetID:         ev.Channel,
		SenderID:         ev.User,
		Channel:          slackName,
		SentAt:           slackTime(ev.TimeStamp),
	}

	switch ev.SubType {
	case "":
		msg.Content = domain.TextContent{Content: ev.Text, PushContent: pushPreview(ev.Text)}
	case "channel_join", "group_join":
		msg.Content = domain.GroupInvitationContent{Operation: "Add", Message: ev.Text}
	case "file_share", "me_message", "thread_broadcast":
		msg.Content = domain.UnknownContent{Name: ObjectNameSlackOther, Raw: []byte(ev.Text)}
	default:
		return domain.Message{}, false
	}
	return msg, true
}

func slackConversationType(channelType string) domain.ConversationType {
	switch channelType {
	case "im":
		return domain.ConversationPrivate
	case "mpim":
		return domain.ConversationDiscussion
	default:
		return domain.ConversationGroup
	}
}

// slackTime parses a Slack "seconds.micros" timestamp.
func slackTime(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var us int64
	if frac != "" {
		us, _ = strconv.ParseInt(frac, 10, 64)
	}
	return time.Unix(s, us*int64(time.Microsecond))
}

func (s *Slack) sendOutbound(msg domain.Message) {
	if s.post == nil {
		s.lg.Warn("slack outbound before connect", zap.String("channel_id", msg.TargetID))
		return
	}

	var text string
	switch c := msg.Content.(type) {
	case domain.TextContent:
		text = c.Content
	case domain.ImageContent:
		text = "<" + c.RemoteURI + ">"
	case domain.LocationContent:
		text = mapsLink(c)
	case domain.RichContent:
		text = "*" + c.Title + "*\n" + c.Content
	default:
		text = "[" + msg.ObjectName() + "]"
	}
	if text == "" {
		return
	}

	for _, chunk := range splitMessage(text, slackMaxMsgLen) {
		if err := s.limiter.Wait(s.ctx); err != nil {
			s.lg.Warn("slack send abandoned", zap.Error(err))
			return
		}
		if err := s.post(msg.TargetID, chunk); err != nil {
			s.lg.Error("slack send failed", zap.String("channel_id", msg.TargetID), zap.Error(err))
		}
	}
}
