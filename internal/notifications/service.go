package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tfsrelay/internal/config"
	"tfsrelay/internal/services"
)

const (
	userAgent      = "tfsrelay/1.0"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 2048
)

// Message is one chat post. An empty Channel posts to the webhook's own
// channel.
type Message struct {
	Text    string
	Channel string
}

// Service defines the chat delivery surface used by the relay.
type Service interface {
	Post(ctx context.Context, msg Message) error
	TestNotification(ctx context.Context, channel string) error
}

// NewService builds a Slack incoming-webhook notifier when a webhook URL is
// configured. Without one (or with a nil config), a noop implementation is
// returned.
func NewService(cfg *config.Config, opts ...Option) Service {
	if cfg == nil {
		return noopService{}
	}
	webhook := strings.TrimSpace(cfg.Slack.WebhookURL)
	if webhook == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Slack.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perSec := cfg.Slack.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}

	svc := &slackService{
		endpoint:  webhook,
		username:  strings.TrimSpace(cfg.Slack.Username),
		iconEmoji: strings.TrimSpace(cfg.Slack.IconEmoji),
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(perSec), perSec),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Option customizes the Slack notifier.
type Option func(*slackService)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *slackService) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLimiter overrides the outbound rate limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(s *slackService) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

type webhookPayload struct {
	Text      string `json:"text"`
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

type slackService struct {
	endpoint  string
	username  string
	iconEmoji string
	client    *http.Client
	limiter   *rate.Limiter
}

func (s *slackService) Post(ctx context.Context, msg Message) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "slack", "post", "message text required", nil)
	}
	return s.send(ctx, webhookPayload{
		Text:      text,
		Channel:   strings.TrimSpace(msg.Channel),
		Username:  s.username,
		IconEmoji: s.iconEmoji,
	})
}

func (s *slackService) TestNotification(ctx context.Context, channel string) error {
	return s.Post(ctx, Message{
		Text:    ":test_tube: tfsrelay notification test",
		Channel: channel,
	})
}

func (s *slackService) send(ctx context.Context, data webhookPayload) error {
	if s == nil || s.client == nil {
		return nil
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrDelivery, "slack", "rate limit", "wait for send slot", err)
		}
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "slack", "build request", "invalid webhook url", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrDelivery, "slack", "post", "send webhook request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := fmt.Sprintf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		if retry := resp.Header.Get("Retry-After"); retry != "" {
			message += " (retry after " + retry + "s)"
		}
		return services.Wrap(services.ErrDelivery, "slack", "post", message, nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Post(context.Context, Message) error            { return nil }
func (noopService) TestNotification(context.Context, string) error { return nil }

// IsNoop reports whether svc discards every message.
func IsNoop(svc Service) bool {
	_, ok := svc.(noopService)
	return ok
}
