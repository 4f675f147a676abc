package hybrid

import (
	"time"

	"github.com/freshstart/outreach/internal/industry"
)

// Method records which tier produced an email.
type Method string

const (
	AIFast   Method = "ai_fast"
	AISlow   Method = "ai_slow"
	Template Method = "template"
)

// IsAI reports whether an AI tier produced the email.
func (m Method) IsAI() bool {
	return m == AIFast || m == AISlow
}

// ParseMethod accepts the stored method names, plus "fallback" for template.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case AIFast, AISlow, Template:
		return Method(s), true
	case "fallback":
		return Template, true
	}
	return "", false
}

// State is a pipeline execution stage.
type State int

const (
	NotStarted State = iota
	FastAttempt
	SlowAttempt
	TemplateFallback
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case FastAttempt:
		return "fast_attempt"
	case SlowAttempt:
		return "slow_attempt"
	case TemplateFallback:
		return "template_fallback"
	case Done:
		return "done"
	}
	return "unknown"
}

// EmailResult is the outcome of one pipeline execution. Subject and Body may
// be edited later; Method, Elapsed and GeneratedAt never change.
type EmailResult struct {
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	Method         Method            `json:"method"`
	Category       industry.Category `json:"category"`
	Elapsed        time.Duration     `json:"elapsed"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Model          string            `json:"model,omitempty"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
	Edited         bool              `json:"edited"`
}

// Edit replaces the content and marks the result as edited.
func (r *EmailResult) Edit(subject, body string) {
	if subject == r.Subject && body == r.Body {
		return
	}
	r.Subject = subject
	r.Body = body
	r.Edited = true
}
