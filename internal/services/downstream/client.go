// Package downstream delivers finished primary-language captions to the
// downstream content API.
package downstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subforge/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the endpoint and bearer token.
type Config struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// Client posts caption text to the content API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a downstream delivery client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Token:   strings.TrimSpace(cfg.Token),
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Deliver posts the caption text for one item. The API replaces any prior
// captions for the item, so re-delivery after a resume is harmless.
func (c *Client) Deliver(ctx context.Context, itemID, captionText string) error {
	if c.cfg.Token == "" {
		return services.Wrap(services.ErrConfiguration, "downstream", "deliver", "token required", nil)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "update-captions", itemID)
	if err != nil {
		return fmt.Errorf("downstream deliver: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(captionText))
	if err != nil {
		return fmt.Errorf("downstream deliver: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrTransient, "downstream", "deliver", "request failed", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrTransient, "downstream", "deliver",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return nil
}
