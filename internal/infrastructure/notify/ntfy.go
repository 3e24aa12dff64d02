package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultServer = "https://ntfy.sh"

type Config struct {
	Server    string `yaml:"server" env:"NATY_SERVER_URL"`
	Topic     string `yaml:"topic" env:"NATY_TOPIC_BUY_SELL_NOTIFY"`
	AuthToken string `yaml:"auth_token" env:"AUTH_TOKEN"`
}

// NtfyNotifier publishes plain-text messages to an ntfy topic.
type NtfyNotifier struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

func NewNtfyNotifier(config Config, logger *zap.Logger) *NtfyNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Server == "" {
		config.Server = DefaultServer
	}
	config.Server = strings.TrimRight(config.Server, "/")
	return &NtfyNotifier{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (n *NtfyNotifier) endpoint() string {
	return n.config.Server + "/" + n.config.Topic
}

// Notify posts message to the topic. The bearer token is only sent to
// self-hosted servers.
func (n *NtfyNotifier) Notify(ctx context.Context, title, message string, tags ...string) error {
	if n.config.Topic == "" {
		return fmt.Errorf("ntfy topic is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint(), strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if n.config.AuthToken != "" && !strings.HasPrefix(n.config.Server, DefaultServer) {
		req.Header.Set("Authorization", "Bearer "+n.config.AuthToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	n.logger.Debug("Notification sent", zap.String("topic", n.config.Topic), zap.String("title", title))
	return nil
}
