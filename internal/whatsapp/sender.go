// Package whatsapp integrates the external messaging gateway. The wire
// protocol itself is opaque to the rest of the backend: a send-text, a
// send-image and a best-effort presence operation.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PresenceComposing is the "typing..." hint shown to the recipient.
const PresenceComposing = "composing"

// SendResult is the provider acknowledgement for a single message.
type SendResult struct {
	Success    bool   `json:"success"`
	ProviderID string `json:"id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Sender is the messaging collaborator consumed by the delivery queue.
type Sender interface {
	SendText(ctx context.Context, phone, body string) (*SendResult, error)
	SendImage(ctx context.Context, phone, caption, imageURL string) (*SendResult, error)
	SetPresence(ctx context.Context, phone, state string) error
}

// Config holds the gateway settings, resolved once at startup and threaded
// into the client at construction.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// GatewayClient talks JSON over HTTP to the WhatsApp gateway.
type GatewayClient struct {
	config Config
	client *http.Client
}

func NewGatewayClient(cfg Config) *GatewayClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GatewayClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *GatewayClient) SendText(ctx context.Context, phone, body string) (*SendResult, error) {
	payload := map[string]string{"phone": phone, "message": body}
	return g.post(ctx, "/send-text", payload)
}

func (g *GatewayClient) SendImage(ctx context.Context, phone, caption, imageURL string) (*SendResult, error) {
	payload := map[string]string{"phone": phone, "caption": caption, "image_url": imageURL}
	return g.post(ctx, "/send-image", payload)
}

// SetPresence is fire-and-forget; callers swallow its error.
func (g *GatewayClient) SetPresence(ctx context.Context, phone, state string) error {
	payload := map[string]string{"phone": phone, "state": state}
	_, err := g.post(ctx, "/presence", payload)
	return err
}

func (g *GatewayClient) post(ctx context.Context, path string, payload map[string]string) (*SendResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.config.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.Token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var result SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result.Error == "" {
			result.Error = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		result.Success = false
	}
	return &result, nil
}

var _ Sender = (*GatewayClient)(nil)

// MockSender implements Sender for local development when no gateway is
// configured. Every send succeeds.
type MockSender struct{}

func (m *MockSender) SendText(ctx context.Context, phone, body string) (*SendResult, error) {
	return &SendResult{Success: true, ProviderID: "mock"}, nil
}

func (m *MockSender) SendImage(ctx context.Context, phone, caption, imageURL string) (*SendResult, error) {
	return &SendResult{Success: true, ProviderID: "mock"}, nil
}

func (m *MockSender) SetPresence(ctx context.Context, phone, state string) error {
	return nil
}

var _ Sender = (*MockSender)(nil)
