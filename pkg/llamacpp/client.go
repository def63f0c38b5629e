// Package llamacpp talks to a llama.cpp server through its OpenAI-compatible
// chat completions endpoint.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is used when NewClient gets an empty URL.
const DefaultURL = "http://localhost:8080"

const (
	chatPath  = "/v1/chat/completions"
	maxTokens = 2048
)

// ErrEmptyReply is returned when the server answers without any text.
var ErrEmptyReply = errors.New("llama.cpp returned no text")

// Client is a llama.cpp vision client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// chatMessage content is a string in replies and a []contentPart in requests;
// some server builds also reply with parts.
type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewClient creates a client for serverURL, or DefaultURL when empty
func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = DefaultURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// SetTimeout overrides the HTTP client timeout
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// SimpleQuery sends prompt and an optional base64 image and returns the
// model's text reply.
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	parts := []contentPart{{Type: "text", Text: prompt}}
	if imgB64 != "" {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL(imgB64)}})
	}
	content, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}

	var resp chatResponse
	err = c.post(ctx, chatPath, chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: maxTokens,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyReply)
	}
	return replyText(resp.Choices[0].Message.Content)
}

func replyText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("decode reply content: %w", err)
	}
	for _, p := range parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", ErrEmptyReply
}

// post sends payload as JSON and decodes a 200 reply into out.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llama.cpp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama.cpp status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// dataURL picks the MIME type from the encoded image's leading bytes
func dataURL(imgB64 string) string {
	mime := "image/jpeg"
	switch {
	case strings.HasPrefix(imgB64, "iVBORw0KGgo"):
		mime = "image/png"
	case strings.HasPrefix(imgB64, "UklGR"):
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + imgB64
}
