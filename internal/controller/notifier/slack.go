package notifier

import (
	"fmt"
	"github.com/slack-go/slack"
	"log/slog"
	"sync"
)

// SlackNotifier posts notifications to all Slack channels the bot is a member of.
type SlackNotifier struct {
	Logger *slog.Logger
	SlackSender
	userID string
	lock   sync.Mutex
}

//go:generate mockery --name SlackSender
type SlackSender interface {
	PostMessage(string, ...slack.MsgOption) (string, string, error)
	GetConversations(*slack.GetConversationsParameters) ([]slack.Channel, string, error)
	AuthTest() (*slack.AuthTestResponse, error)
}

var _ Notifier = &SlackNotifier{}

func (s *SlackNotifier) Notify(n Notification) {
	channels, err := s.getChannels()
	if err != nil {
		s.Logger.Error("notifier failed to retrieve channels", "err", err)
		return
	}
	for _, channel := range channels {
		s.Logger.Debug("notifying on slack", "channel", channel.Name)
		_, _, err = s.SlackSender.PostMessage(channel.ID, format(n))
		if err != nil {
			s.Logger.Error("notifier failed to post message", "err", err)
		}
	}
}

func (s *SlackNotifier) getChannels() ([]slack.Channel, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.userID == "" {
		authResp, err := s.SlackSender.AuthTest()
		if err != nil {
			return nil, fmt.Errorf("AuthTest: %w", err)
		}
		s.userID = authResp.UserID
		s.Logger.Debug("connected to slack", "user", authResp.User, "team", authResp.Team)
	}

	var joinedChannels []slack.Channel
	var cursor string
	for {
		channels, nextCursor, err := s.SlackSender.GetConversations(&slack.GetConversationsParameters{Cursor: cursor, Limit: 100})
		if err != nil {
			return nil, fmt.Errorf("GetConversations: %w", err)
		}
		for _, channel := range channels {
			if channel.IsMember && !channel.IsArchived {
				joinedChannels = append(joinedChannels, channel)
			}
		}
		if cursor = nextCursor; cursor == "" {
			break
		}
	}
	return joinedChannels, nil
}

// format shows a zone transition as an attachment: the action as title, the reason as text and each detail as a field.
func format(n Notification) slack.MsgOption {
	fields := make([]slack.AttachmentField, len(n.Details))
	for i, detail := range n.Details {
		fields[i] = slack.AttachmentField{Title: detail.Name, Value: detail.Value, Short: true}
	}
	return slack.MsgOptionAttachments(slack.Attachment{
		Color:  color(n.Action),
		Title:  n.String(),
		Text:   n.Reason,
		Fields: fields,
	})
}

func color(action string) string {
	switch action {
	case "opening":
		return "good"
	case "closing":
		return "warning"
	default:
		return "#439FE0"
	}
}
