package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NotifierConfig holds notification settings. An empty WebhookURL turns the
// notifier into a logging stub that still reports success, so pipelines work
// without a configured channel.
type NotifierConfig struct {
	WebhookURL string        `yaml:"webhook_url" json:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// Notifier delivers operator notifications to a webhook channel.
type Notifier struct {
	config NotifierConfig
	http   *http.Client
	logger *zap.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(config NotifierConfig, logger *zap.Logger) *Notifier {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger.With(zap.String("component", "notifier")),
	}
}

// Send delivers one message.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is required")
	}

	if n.config.WebhookURL == "" {
		n.logger.Info("notification (no webhook configured)", zap.String("message", message))
		return nil
	}

	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification channel returned %d", resp.StatusCode)
	}

	n.logger.Info("notification sent", zap.Int("bytes", len(body)))
	return nil
}

// NotifyTool returns the notification tool.
func NotifyTool(notifier *Notifier) Tool {
	return Tool{
		Schema: schema("notify",
			"Sends a notification.",
			`{"type":"object","properties":{"message":{"type":"string","description":"The message to send."}},"required":["message"]}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			if err := notifier.Send(ctx, in.Message); err != nil {
				return nil, err
			}
			return map[string]string{"status": "success"}, nil
		},
	}
}
