// Package ollama is a generator backend for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/freshstart/outreach/internal/generator"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	// HTTPClient overrides the transport. Per-call deadlines come from the
	// context, so the client itself should not set a Timeout.
	HTTPClient *http.Client
}

// Client calls POST /api/generate with streaming disabled.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	http        *http.Client
}

var (
	_ generator.Generator = (*Client)(nil)
	_ generator.Pinger    = (*Client)(nil)
)

// New returns a client for the given server. A BaseURL that already ends in
// /api/generate is accepted.
func New(opts Options) *Client {
	base := NormalizeBaseURL(opts.BaseURL)
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: base, model: model, temperature: opts.Temperature, http: hc}
}

// NormalizeBaseURL strips trailing slashes and API paths from raw.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	for _, suffix := range []string{"/api/generate", "/api/tags", "/api"} {
		base = strings.TrimSuffix(base, suffix)
	}
	return strings.TrimRight(base, "/")
}

func (c *Client) Model() string { return c.model }

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string { return c.baseURL }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate sends one prompt built from req.
func (c *Client) Generate(ctx context.Context, req generator.Request) (generator.Text, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: generator.BuildPrompt(req),
		Stream: false,
	}
	if c.temperature > 0 {
		payload.Options = map[string]any{"temperature": c.temperature}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return generator.Text{}, fmt.Errorf("%w: marshal request: %v", generator.ErrMalformed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return generator.Text{}, fmt.Errorf("%w: create request: %v", generator.ErrUnreachable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return generator.Text{}, generator.Classify(fmt.Errorf("ollama request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return generator.Text{}, newHTTPError("generate", resp, bodyBytes)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return generator.Text{}, generator.Classify(ctx.Err())
		}
		return generator.Text{}, fmt.Errorf("%w: decode response: %v", generator.ErrMalformed, err)
	}
	if out.Error != "" {
		return generator.Text{}, fmt.Errorf("%w: %s", generator.ErrMalformed, out.Error)
	}
	if strings.TrimSpace(out.Response) == "" {
		return generator.Text{}, fmt.Errorf("%w: empty response field", generator.ErrMalformed)
	}
	model := out.Model
	if model == "" {
		model = c.model
	}
	return generator.Text{Raw: out.Response, Model: model}, nil
}

// Ping checks GET /api/tags within timeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", generator.ErrUnreachable, err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return generator.Classify(fmt.Errorf("ollama ping failed: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return newHTTPError("tags", resp, nil)
	}
	return nil
}
