package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	httpTimeout    = 15 * time.Second
)

// ResendSender delivers email through the Resend HTTP API.
type ResendSender struct {
	apiKey string
	from   string
	client *http.Client
}

// NewResendSender constructs a sender with a shared HTTP client.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: httpTimeout},
	}
}

// Send posts the message to the Resend API.
func (s *ResendSender) Send(ctx context.Context, to string, msg Email) error {
	body, err := json.Marshal(map[string]any{
		"from":    s.from,
		"to":      []string{to},
		"subject": msg.Subject,
		"html":    msg.HTML,
		"text":    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal resend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend API returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// LogSender logs a preview instead of delivering. Used when no RESEND_API_KEY
// is configured, so the pipeline keeps advancing in development.
type LogSender struct{}

// Send logs the would-be delivery.
func (LogSender) Send(_ context.Context, to string, msg Email) error {
	log.Printf("[notify] RESEND_API_KEY not set — email preview: to=%s subject=%q", to, msg.Subject)
	return nil
}
