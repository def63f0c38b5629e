package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultTimeout bounds a query when the caller's context has no deadline
const DefaultTimeout = 300 * time.Second

// ErrEmptyReply is returned when the model streams no content
var ErrEmptyReply = errors.New("ollama: empty reply")

// Client talks to an Ollama server's chat endpoint
type Client struct {
	api     *api.Client
	timeout time.Duration
}

// NewClient accepts either the server root or a full endpoint URL; only
// scheme and host are used. OLLAMA_HOST is not consulted.
func NewClient(rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ollama: invalid URL %q: scheme and host required", rawURL)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host}
	return &Client{api: api.NewClient(base, http.DefaultClient), timeout: DefaultTimeout}, nil
}

// SetTimeout overrides DefaultTimeout
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// SimpleQuery sends one user turn carrying prompt and a base64 image and
// returns the concatenated reply.
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("ollama: image payload: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model:   model,
		Stream:  &stream,
		Options: modelOptions(model),
		Messages: []api.Message{{
			Role:    "user",
			Content: prompt,
			Images:  []api.ImageData{raw},
		}},
	}

	var reply strings.Builder
	if err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if reply.Len() == 0 {
		return "", ErrEmptyReply
	}
	return reply.String(), nil
}

// modelOptions pins temperature to zero. MiniCPM-V 4 also needs a wider
// context and nucleus sampling to answer reliably.
func modelOptions(model string) map[string]any {
	opts := map[string]any{"temperature": 0.0}

	m := strings.ReplaceAll(strings.ToLower(model), "-", "")
	if strings.Contains(m, "minicpmv4") {
		opts["top_p"] = 0.8
		opts["num_ctx"] = 4096
	}
	return opts
}
