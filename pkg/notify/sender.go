package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/canopy-network/gaugewatch/pkg/retry"
	"github.com/canopy-network/gaugewatch/pkg/rpc"
)

// Sender delivers one rendered chunk.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// LogSender writes messages to the log. It stands in for Telegram when no bot is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, text string) error {
	s.Logger.Info("Notification", zap.String("text", text))
	return nil
}

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	client  *rpc.HTTPClient
	token   string
	chatID  string
	limiter *rate.Limiter
	retry   retry.Config
	logger  *zap.Logger
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewTelegram creates a sender for chatID. client must point at the Bot API base URL.
// rps caps outbound messages; Telegram allows about one per second per chat.
func NewTelegram(client *rpc.HTTPClient, token, chatID string, rps float64, logger *zap.Logger) *Telegram {
	if rps <= 0 {
		rps = 1
	}
	return &Telegram{
		client:  client,
		token:   token,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   retry.DefaultConfig(),
		logger:  logger,
	}
}

// WithRetry overrides the retry policy.
func (t *Telegram) WithRetry(cfg retry.Config) *Telegram {
	t.retry = cfg
	return t
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	req := sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	return retry.WithBackoff(ctx, t.retry, t.logger, "telegram.sendMessage", func() error {
		var resp sendMessageResponse
		if err := t.client.PostJSON(ctx, "/bot"+t.token+"/sendMessage", req, &resp); err != nil {
			return t.classify(err)
		}
		if !resp.OK {
			return retry.Permanent(fmt.Errorf("telegram rejected message: %d %s", resp.ErrorCode, resp.Description))
		}
		return nil
	})
}

// classify marks client errors other than 429 as permanent and keeps the token out of error text.
func (t *Telegram) classify(err error) error {
	var statusErr *rpc.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}
	if t.token != "" && strings.Contains(err.Error(), t.token) {
		return errors.New(strings.ReplaceAll(err.Error(), t.token, "<token>"))
	}
	return err
}
