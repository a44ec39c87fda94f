// Package channel holds transports that feed real chat traffic into the
// in-process SDK client.
package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"imkit/internal/domain"
)

const (
	telegramName           = "telegram"
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3

	// ObjectNameTelegramOther marks Telegram updates with no matching variant.
	ObjectNameTelegramOther = "TG:Other"
)

// sender is the slice of *tgbotapi.BotAPI used for outbound traffic.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// statusReporter is implemented by sinks that track connection state.
type statusReporter interface {
	NotifyStatus(domain.ConnectionStatus)
}

// Telegram bridges a Telegram bot to the SDK client: updates become inbound
// messages, and messages sent on the "telegram" channel go back to the chat.
type Telegram struct {
	token     string
	allowFrom []int64 // empty allows everyone

	bot     sender
	out     *outbox
	limiter *RateLimiter
	ctx     context.Context // Start's context; bounds limiter waits
	lg      *zap.Logger
	sleep   func(time.Duration)
	newBot  func(token string) (*tgbotapi.BotAPI, error)
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // user ids
	Logger    *zap.Logger
}

var _ domain.Channel = (*Telegram)(nil)

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	t := &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		limiter:   NewRateLimiter(0, 0),
		ctx:       context.Background(),
		lg:        lg.Named(telegramName),
		sleep:     time.Sleep,
		newBot:    tgbotapi.NewBotAPI,
	}
	t.out = newOutbox(t.sendOutbound, t.lg)
	return t
}

func (t *Telegram) Name() string { return telegramName }

// Start connects the bot and polls for updates until ctx ends.
func (t *Telegram) Start(ctx context.Context, sink domain.MessageSink) error {
	bot, err := t.newBot(t.token)
	if err != nil {
		if r, ok := sink.(statusReporter); ok {
			r.NotifyStatus(domain.StatusNetworkUnavailable)
		}
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.ctx = ctx
	t.lg.Info("telegram bot connected", zap.String("username", bot.Self.UserName), zap.Int64("id", bot.Self.ID))

	go t.out.run(ctx)
	sink.OnOutbound(telegramName, t.out.enqueue)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.lg.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(sink, update)
		}
	}
}

// Stop is a no-op: polling ends with Start's context, and stopping the
// update channel twice panics.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) handleUpdate(sink domain.MessageSink, update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return
	}
	if !t.isAllowed(m.From.ID) {
		t.lg.Warn("unauthorized telegram user", zap.Int64("user_id", m.From.ID), zap.String("username", m.From.UserName))
		return
	}

	msg, ok := messageFromUpdate(update)
	if !ok {
		return
	}
	if err := sink.Deliver(msg); err != nil {
		t.lg.Error("deliver telegram message", zap.String("chat_id", msg.TargetID), zap.Error(err))
	}
}

// messageFromUpdate maps a Telegram update to a message. It reports false
// for updates that carry no message.
func messageFromUpdate(update tgbotapi.Update) (domain.Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return domain.Message{}, false
	}

	msg := domain.Message{
		ID:               strconv.Itoa(m.MessageID),
		ConversationType: conversationType(m.Chat),
		TargetID:         strconv.FormatInt(m.Chat.ID, 10),
		Channel:          telegramName,
		SentAt:           m.Time(),
	}
	if m.From != nil {
		msg.SenderID = strconv.FormatInt(m.From.ID, 10)
	}
	msg.Content = contentOf(m)
	return msg, true
}

func contentOf(m *tgbotapi.Message) domain.Content {
	switch {
	case m.Text != "":
		return domain.TextContent{Content: m.Text, PushContent: pushPreview(m.Text)}
	case len(m.Photo) > 0:
		return domain.ImageContent{
			RemoteURI: "tg://file/" + m.Photo[len(m.Photo)-1].FileID,
			ThumbURI:  "tg://file/" + m.Photo[0].FileID,
		}
	case m.Voice != nil:
		return domain.VoiceContent{
			URI:      "tg://file/" + m.Voice.FileID,
			Duration: time.Duration(m.Voice.Duration) * time.Second,
		}
	case m.Venue != nil:
		return domain.LocationContent{
			Latitude:  m.Venue.Location.Latitude,
			Longitude: m.Venue.Location.Longitude,
			POI:       m.Venue.Title,
		}
	case m.Location != nil:
		return domain.LocationContent{Latitude: m.Location.Latitude, Longitude: m.Location.Longitude}
	case len(m.NewChatMembers) > 0:
		names := make([]string, 0, len(m.NewChatMembers))
		for _, u := range m.NewChatMembers {
			names = append(names, displayName(u))
		}
		return domain.GroupInvitationContent{Operation: "Add", Message: strings.Join(names, ", ") + " joined"}
	default:
		return domain.UnknownContent{Name: ObjectNameTelegramOther}
	}
}

func conversationType(c *tgbotapi.Chat) domain.ConversationType {
	switch {
	case c.IsPrivate():
		return domain.ConversationPrivate
	case c.IsGroup(), c.IsSuperGroup():
		return domain.ConversationGroup
	case c.IsChannel():
		return domain.ConversationChatroom
	default:
		return domain.ConversationPrivate
	}
}

func displayName(u tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// pushPreview is the notification text for a text message.
func pushPreview(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Telegram) sendOutbound(msg domain.Message) {
	chatID, err := strconv.ParseInt(msg.TargetID, 10, 64)
	if err != nil {
		t.lg.Error("invalid chat id for telegram outbound", zap.String("chat_id", msg.TargetID), zap.Error(err))
		return
	}

	switch c := msg.Content.(type) {
	case domain.TextContent:
		t.sendText(chatID, c.Content)
	case domain.ImageContent:
		t.sendChunk(tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(c.RemoteURI)))
	case domain.LocationContent:
		t.sendChunk(tgbotapi.NewLocation(chatID, c.Latitude, c.Longitude))
	case domain.RichContent:
		t.sendText(chatID, c.Title+"\n"+c.Content)
	default:
		t.sendText(chatID, "["+msg.ObjectName()+"]")
	}
}

// sendText splits text at Telegram's message size limit.
func (t *Telegram) sendText(chatID int64, text string) {
	if text == "" {
		return
	}
	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		t.sendChunk(tgbotapi.NewMessage(chatID, chunk))
	}
}

// sendChunk sends c, backing off on rate limits and transient errors.
func (t *Telegram) sendChunk(c tgbotapi.Chattable) {
	var err error
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		if err = t.limiter.Wait(t.ctx); err != nil {
			t.lg.Warn("telegram send abandoned", zap.Error(err))
			return
		}
		if _, err = t.bot.Send(c); err == nil {
			return
		}
		if attempt == telegramMaxSendRetries {
			break
		}

		backoff := time.Duration(attempt+1) * time.Second
		if s := err.Error(); strings.Contains(s, "Too Many Requests") || strings.Contains(s, "429") {
			backoff *= 3
			t.lg.Warn("telegram rate limited, backing off", zap.Duration("retry_after", backoff), zap.Int("attempt", attempt+1))
		} else {
			t.lg.Warn("telegram send error, retrying", zap.Error(err), zap.Duration("backoff", backoff))
		}
		t.sleep(backoff)
	}
	t.lg.Error("telegram send failed after retries", zap.Error(err), zap.Int("attempts", telegramMaxSendRetries+1))
}
