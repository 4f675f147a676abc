// Package gemini is a generator backend for the hosted Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/freshstart/outreach/internal/generator"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// Generator asks Gemini for a structured {subject, body} object.
type Generator struct {
	client *genai.Client
	model  string
}

var _ generator.Generator = (*Generator)(nil)

func New(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: strings.TrimSpace(cfg.Model)}, nil
}

func (g *Generator) Model() string { return g.model }

type responseSchema struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"subject": {Type: genai.TypeString},
		"body":    {Type: genai.TypeString},
	},
	Required: []string{"subject", "body"},
}

// Generate returns "Subject: <subject>\n\n<body>" so callers parse every
// backend the same way.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (generator.Text, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(buildPrompt(req)),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   outputSchema,
		},
	)
	if err != nil {
		return generator.Text{}, classifyErr(err)
	}
	return decode(resp.Text(), g.model)
}

func decode(raw, model string) (generator.Text, error) {
	var parsed responseSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return generator.Text{}, fmt.Errorf("%w: gemini structured json: %v", generator.ErrMalformed, err)
	}
	subject := strings.TrimSpace(parsed.Subject)
	body := strings.TrimSpace(parsed.Body)
	if body == "" {
		return generator.Text{}, fmt.Errorf("%w: gemini returned an empty body", generator.ErrMalformed)
	}
	if subject == "" {
		return generator.Text{Raw: body, Model: model}, nil
	}
	return generator.Text{Raw: "Subject: " + subject + "\n\n" + body, Model: model}, nil
}

func buildPrompt(req generator.Request) string {
	return strings.TrimSpace(generator.BuildPrompt(req) + `
Return ONLY a single JSON object with these keys:
- subject (string)
- body (string, plain text, no markdown)
`)
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini api status %d: %s", generator.ErrUnreachable, apiErr.Code, apiErr.Status)
	}
	return generator.Classify(err)
}
