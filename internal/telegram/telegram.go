// Package telegram is feedbot's messaging adapter. Unlike a chat bot it
// never polls for updates: the bridge only posts to one destination.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "feedbot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64

	// Timeout bounds each send request; 0 uses a conservative default.
	Timeout time.Duration
}

// Sender delivers rendered HTML messages to the configured chat.
type Sender struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  logx.Logger
}

// New validates the token against the Bot API (getMe) before the first
// run touches any state.
func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Sender{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, log: log}, nil
}

// Send posts one message. Any transport-level failure (non-success
// response, timeout, connection error) is returned to the caller; the
// pipeline decides whether to keep going.
func (s *Sender) Send(ctx context.Context, text string, disablePreview bool) error {
	_ = ctx // telebot manages its own request lifecycle
	_, err := s.bot.Send(s.chat, text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: disablePreview,
	})
	if err != nil {
		return err
	}
	s.log.Debug("message sent", logx.Int64("chat_id", s.chat.ID))
	return nil
}
