// Package sms delivers one-time codes through the external SMS gateway.
// Delivery is best-effort; the caller decides what a failed dispatch means.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Gateway sends a text to a subscriber addressed by digits only (no plus).
type Gateway interface {
	Send(ctx context.Context, recipient, messageID, text string) error
}

// HTTPGateway talks to the provider's JSON API using basic auth.
type HTTPGateway struct {
	apiURL     string
	username   string
	password   string
	originator string
	client     *http.Client
}

// NewHTTPGateway builds a gateway client with a bounded request timeout so a
// slow provider cannot stall the code-issuance path indefinitely.
func NewHTTPGateway(apiURL, username, password, originator string) *HTTPGateway {
	return &HTTPGateway{
		apiURL:     apiURL,
		username:   username,
		password:   password,
		originator: originator,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	Recipient int64   `json:"recipient"`
	MessageID string  `json:"message-id"`
	SMS       payload `json:"sms"`
}

type payload struct {
	Originator string  `json:"originator"`
	Content    content `json:"content"`
}

type content struct {
	Text string `json:"text"`
}

// Send posts a single message to the gateway. Any non-2xx response is an error.
func (g *HTTPGateway) Send(ctx context.Context, recipient, messageID, text string) error {
	digits, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("sms recipient %q: %w", recipient, err)
	}

	body, err := json.Marshal(map[string]message{
		"messages": {
			Recipient: digits,
			MessageID: messageID,
			SMS: payload{
				Originator: g.originator,
				Content:    content{Text: text},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.username, g.password)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}
	return nil
}

// LoggerGateway is a stub implementation that writes messages to the logger.
// Used outside production where real dispatch is skipped.
type LoggerGateway struct {
	logger *slog.Logger
}

// NewLoggerGateway constructs a logging gateway stub.
func NewLoggerGateway(logger *slog.Logger) *LoggerGateway {
	return &LoggerGateway{logger: logger}
}

// Send writes the message to the structured logger.
func (g *LoggerGateway) Send(_ context.Context, recipient, messageID, text string) error {
	if g == nil || g.logger == nil {
		return nil
	}
	g.logger.Info("sms", "recipient", recipient, "message_id", messageID, "text", text)
	return nil
}
