package imsdk

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"imkit/internal/domain"
)

// Script is a scripted conversation replayed against a connected client,
// used by the simulate command and by integration tests.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one scripted action. Exactly one content field is expected on
// receive, send and clickMessage steps; none means an unknown variant named
// by ObjectName.
type Step struct {
	Action       string        `yaml:"action"` // receive | send | clickMessage | clickPortrait | status | clearUnread | wait
	Conversation string        `yaml:"conversation,omitempty"`
	Target       string        `yaml:"target,omitempty"`
	Sender       string        `yaml:"sender,omitempty"`
	Channel      string        `yaml:"channel,omitempty"`
	User         string        `yaml:"user,omitempty"`
	Status       string        `yaml:"status,omitempty"`
	Wait         time.Duration `yaml:"wait,omitempty"`

	Text       *domain.TextContent            `yaml:"text,omitempty"`
	Image      *domain.ImageContent           `yaml:"image,omitempty"`
	Voice      *domain.VoiceContent           `yaml:"voice,omitempty"`
	Rich       *domain.RichContent            `yaml:"rich,omitempty"`
	Invitation *domain.GroupInvitationContent `yaml:"invitation,omitempty"`
	Location   *domain.LocationContent        `yaml:"location,omitempty"`
	ObjectName string                         `yaml:"objectName,omitempty"`
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i, st := range s.Steps {
		switch st.Action {
		case "receive", "send", "clickMessage", "clickPortrait", "status", "clearUnread", "wait":
		default:
			return nil, fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
	}
	return &s, nil
}

// Content returns the step's message content.
func (st Step) Content() domain.Content {
	switch {
	case st.Text != nil:
		return *st.Text
	case st.Image != nil:
		return *st.Image
	case st.Voice != nil:
		return *st.Voice
	case st.Rich != nil:
		return *st.Rich
	case st.Invitation != nil:
		return *st.Invitation
	case st.Location != nil:
		return *st.Location
	default:
		return domain.UnknownContent{Name: st.ObjectName}
	}
}

func (st Step) message() domain.Message {
	return domain.Message{
		ConversationType: domain.ParseConversationType(st.Conversation),
		TargetID:         st.Target,
		SenderID:         st.Sender,
		Channel:          st.Channel,
		Content:          st.Content(),
	}
}

var statusNames = map[string]domain.ConnectionStatus{
	"CONNECTING":                     domain.StatusConnecting,
	"CONNECTED":                      domain.StatusConnected,
	"DISCONNECTED":                   domain.StatusDisconnected,
	"KICKED_OFFLINE_BY_OTHER_CLIENT": domain.StatusKickedOffline,
	"NETWORK_UNAVAILABLE":            domain.StatusNetworkUnavailable,
	"TOKEN_INCORRECT":                domain.StatusTokenIncorrect,
}

// Run replays the script step by step. Receive steps only enqueue; add a
// wait step where later steps depend on dispatch having happened.
func (c *Client) Run(ctx context.Context, nav domain.Navigator, s *Script) error {
	c.lg.Info("running script", zap.String("name", s.Name), zap.Int("steps", len(s.Steps)))
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.runStep(ctx, nav, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func (c *Client) runStep(ctx context.Context, nav domain.Navigator, st Step) error {
	switch st.Action {
	case "receive":
		return c.Deliver(st.message())
	case "send":
		_, err := c.Send(st.message())
		return err
	case "clickMessage":
		msg := st.message()
		stamp(&msg)
		c.ClickMessage(nav, msg)
	case "clickPortrait":
		user := domain.UserInfo{UserID: st.User}
		if u := c.UserInfo(st.User); u != nil {
			user = *u
		}
		c.ClickPortrait(nav, domain.ParseConversationType(st.Conversation), user)
	case "status":
		s, ok := statusNames[st.Status]
		if !ok {
			return fmt.Errorf("unknown status %q", st.Status)
		}
		c.NotifyStatus(s)
	case "clearUnread":
		c.ClearUnread(domain.ParseConversationType(st.Conversation), st.Target)
	case "wait":
		t := time.NewTimer(st.Wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
