// Package speech wraps an OpenAI-compatible audio transcription API that
// returns subtitle text directly.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subforge/internal/services"
)

const defaultHTTPTimeout = 600 * time.Second

// Config captures the runtime settings for the transcription service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	MaxUploadBytes int64
	TimeoutSeconds int
}

// Client wraps the transcription endpoint.
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

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe uploads the audio file at path and returns the raw SRT
// transcript. Files beyond the service's upload cap are rejected before any
// network call.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "speech", "transcribe", "api key required", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "speech", "transcribe", "audio file missing", err)
	}
	if c.cfg.MaxUploadBytes > 0 && info.Size() > c.cfg.MaxUploadBytes {
		return "", services.Wrap(services.ErrValidation, "speech", "transcribe",
			fmt.Sprintf("audio file is %.1f MiB, cap is %.1f MiB",
				float64(info.Size())/(1024*1024), float64(c.cfg.MaxUploadBytes)/(1024*1024)), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "speech", "transcribe", "open audio file", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("speech transcribe: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("speech transcribe: copy audio: %w", err)
	}
	fields := map[string]string{
		"model":           c.cfg.Model,
		"response_format": "srt",
		"temperature":     "0",
	}
	if c.cfg.Language != "" {
		fields["language"] = c.cfg.Language
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", fmt.Errorf("speech transcribe: write field %s: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("speech transcribe: close form: %w", err)
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("speech transcribe: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("speech transcribe: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Wrap(services.ErrTransient, "speech", "transcribe", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "speech", "transcribe", "read body", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout {
		return "", services.Wrap(services.ErrTransient, "speech", "transcribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrExternalTool, "speech", "transcribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	transcript := strings.TrimSpace(string(payload))
	if transcript == "" {
		return "", services.Wrap(services.ErrExternalTool, "speech", "transcribe", "empty transcript", nil)
	}
	return transcript, nil
}
