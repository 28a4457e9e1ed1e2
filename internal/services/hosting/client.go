// Package hosting wraps the video hosting platform API: file listings, audio
// downloads, and subtitle management for one video.
package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"subforge/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// File describes one stored file attached to a video.
type File struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	EncryptionType string `json:"encryption_type"`
	AudioCodec     string `json:"audio_codec"`
	Downloadable   bool   `json:"isDownloadable"`
	HLS            *HLS   `json:"HLS_Stream,omitempty"`
}

// HLS carries stream parameters for adaptive playback files.
type HLS struct {
	Params struct {
		Streams []Stream `json:"streams"`
	} `json:"params"`
}

// Stream is one media stream within an HLS file.
type Stream struct {
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// Config captures the platform credentials and endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client wraps the hosting platform REST API.
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

// NewClient constructs a hosting platform client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) authHeader() string {
	return "Apisecret " + c.cfg.APIKey
}

// ListFiles returns the files attached to a video. A 404 maps to
// services.ErrNotFound so the pipeline can hard-fail the item.
func (c *Client) ListFiles(ctx context.Context, videoID string) ([]File, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "videos", videoID, "files")
	if err != nil {
		return nil, fmt.Errorf("hosting list files: build url: %w", err)
	}
	body, err := c.get(ctx, endpoint, "list files")
	if err != nil {
		return nil, err
	}
	var files []File
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "hosting", "list files", "decode response", err)
	}
	return files, nil
}

// DownloadURL resolves the redirect URL for a downloadable file.
func (c *Client) DownloadURL(ctx context.Context, videoID, fileID string) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "videos", videoID, "files", fileID)
	if err != nil {
		return "", fmt.Errorf("hosting download url: build url: %w", err)
	}
	body, err := c.get(ctx, endpoint, "download url")
	if err != nil {
		return "", err
	}
	var payload struct {
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "hosting", "download url", "decode response", err)
	}
	if payload.Redirect == "" {
		return "", services.Wrap(services.ErrNotFound, "hosting", "download url", "no redirect in response", nil)
	}
	return payload.Redirect, nil
}

// Download streams fileURL to dest.
func (c *Client) Download(ctx context.Context, fileURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("hosting download: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrTransient, "hosting", "download", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "hosting", "download",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("hosting download: create %s: %w", dest, err)
	}
	defer file.Close()
	if _, err := io.Copy(file, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, "hosting", "download", "copy body", err)
	}
	return nil
}

// DeleteSubtitles removes prior subtitle files for the listed language codes.
// Subtitle files are recognized by the "[XX] name.vtt" convention the
// platform applies on upload. The deleted count is returned.
func (c *Client) DeleteSubtitles(ctx context.Context, videoID string, languages []string) (int, error) {
	files, err := c.ListFiles(ctx, videoID)
	if err != nil {
		return 0, err
	}

	tags := make([]string, 0, len(languages))
	for _, lang := range languages {
		tags = append(tags, "["+strings.ToUpper(lang)+"]")
	}

	deleted := 0
	for _, file := range files {
		if !strings.HasSuffix(file.Name, ".vtt") || file.ID == "" {
			continue
		}
		match := false
		for _, tag := range tags {
			if strings.Contains(file.Name, tag) {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		endpoint, err := url.JoinPath(c.cfg.BaseURL, "videos", videoID, "files", file.ID)
		if err != nil {
			return deleted, fmt.Errorf("hosting delete subtitle: build url: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return deleted, fmt.Errorf("hosting delete subtitle: request: %w", err)
		}
		req.Header.Set("Authorization", c.authHeader())
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return deleted, services.Wrap(services.ErrTransient, "hosting", "delete subtitle", "request failed", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= http.StatusMultipleChoices {
			return deleted, services.Wrap(services.ErrTransient, "hosting", "delete subtitle",
				fmt.Sprintf("http %d for %s", resp.StatusCode, file.Name), nil)
		}
		deleted++
	}
	return deleted, nil
}

// UploadSubtitle attaches subtitle text to the video under the given ISO
// 639-1 language code.
func (c *Client) UploadSubtitle(ctx context.Context, videoID, language, subtitleText string) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "videos", videoID, "files")
	if err != nil {
		return fmt.Errorf("hosting upload subtitle: build url: %w", err)
	}
	endpoint += "?language=" + url.QueryEscape(language)

	body, contentType, err := subtitleForm(language, subtitleText)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("hosting upload subtitle: request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrTransient, "hosting", "upload subtitle", "request failed", err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrTransient, "hosting", "upload subtitle",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, operation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("hosting %s: request: %w", operation, err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransient, "hosting", operation, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "hosting", operation, "read body", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "hosting", operation,
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, services.Wrap(services.ErrTransient, "hosting", operation,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return body, nil
}
