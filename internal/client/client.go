// Package client talks to a running voicify-tts server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/voicify-tts/internal/api"
)

// ErrEmptyText is returned before any request is made for empty text.
var ErrEmptyText = errors.New("text is empty")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode     int
	Message        string
	Detail         string
	InstallCommand string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if e.InstallCommand != "" {
		msg += fmt.Sprintf(" (install with %q)", e.InstallCommand)
	}
	return msg
}

// Speech is synthesized audio returned by the server.
type Speech struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Client calls the speech and health endpoints.
type Client struct {
	baseURL    string
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize posts text to /text-to-speech and returns the audio.
func (c *Client) Synthesize(ctx context.Context, text string) (*Speech, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(api.SpeechRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	speech := &Speech{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		speech.Filename = params["filename"]
	}

	c.logger.Debug("speech received",
		"bytes", len(data),
		"content_type", speech.ContentType,
		"filename", speech.Filename,
	)

	return speech, nil
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

// readAPIError builds an APIError from an error response, falling back to
// the raw body when it is not JSON.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body api.UnavailableResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Detail = body.Message
		apiErr.InstallCommand = body.InstallCommand
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
