package ollama

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/freshstart/outreach/internal/generator"
	"github.com/freshstart/outreach/pkg/pipeline/redact"
)

// errorEnvelope is the {"error": "..."} body Ollama returns on failures.
type errorEnvelope struct {
	Error string `json:"error"`
}

// HTTPError is a sanitized summary of a non-2xx Ollama response. It matches
// generator.ErrUnreachable.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string

	// Snippet is a redacted, truncated hint for non-JSON responses.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "ollama http error"
	}
	parts := []string{
		fmt.Sprintf("ollama api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "error="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func (e *HTTPError) Unwrap() error {
	return generator.ErrUnreachable
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Error) != "" {
		h.Message = redactAndTruncate([]byte(env.Error))
		return h
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
