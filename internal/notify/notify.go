package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notes-go/internal/config"
	"notes-go/internal/notes"
)

// HTTPNotifier posts welcome notifications to an external mail service.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPNotifier creates a notifier that posts to baseURL + "/send/welcome".
func NewHTTPNotifier(baseURL string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type welcomeRequest struct {
	Email string `json:"email"`
}

func (n *HTTPNotifier) SendWelcome(email string) error {
	body, err := json.Marshal(welcomeRequest{Email: email})
	if err != nil {
		return fmt.Errorf("encoding welcome request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, n.baseURL+"/send/welcome", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building welcome request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending welcome notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("welcome notification rejected: %s", resp.Status)
	}
	return nil
}

// LogNotifier only logs the notification. It is the default when no mail
// service is configured.
type LogNotifier struct {
	logger notes.Logger
}

func NewLogNotifier(logger notes.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendWelcome(email string) error {
	n.logger.Info("welcome notification", "email", email)
	return nil
}

// NewNotifierFromConfig creates the notifier named by cfg.Type.
// Type "none" yields a nil notifier, which disables notifications.
func NewNotifierFromConfig(cfg config.NotifierConfig, logger notes.Logger) (notes.Notifier, error) {
	switch cfg.Type {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("notifier base_url is required for type http")
		}
		return NewHTTPNotifier(cfg.BaseURL, cfg.Timeout.Duration), nil
	case "log", "":
		return NewLogNotifier(logger), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
