package generator

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the instruction sent to text-completion backends.
func BuildPrompt(req Request) string {
	p := req.Prospect
	var b strings.Builder

	fmt.Fprintf(&b, "Write a short, friendly cold outreach email from %s, a commercial cleaning company, to %s.\n\n",
		nonEmpty(req.Sender.Name, "our cleaning company"), p.CompanyName)
	fmt.Fprintf(&b, "Company: %s\n", p.CompanyName)
	fmt.Fprintf(&b, "Industry: %s (%s)\n", nonEmpty(p.Industry, "business"), req.Category)
	if p.ContactName != "" {
		fmt.Fprintf(&b, "Contact: %s\n", p.ContactName)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Location)
	}
	if p.CompanySize != "" {
		fmt.Fprintf(&b, "Company size: %s\n", p.CompanySize)
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", p.Notes)
	}
	if req.Content.Benefits != "" {
		fmt.Fprintf(&b, "Why it matters: %s\n", req.Content.Benefits)
	}
	if req.Content.PainPoints != "" {
		fmt.Fprintf(&b, "Their likely challenge: %s\n", req.Content.PainPoints)
	}
	if len(req.Content.Services) > 0 {
		fmt.Fprintf(&b, "Relevant services: %s\n", strings.Join(req.Content.Services, ", "))
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Start with a line of the form \"Subject: <subject>\".\n")
	b.WriteString("- Keep the body under 150 words with a personal opening, one industry-specific benefit, and a request for a short call.\n")
	b.WriteString("- Do not invent prices or guarantees.\n")
	if req.Sender.Name != "" {
		fmt.Fprintf(&b, "- Sign off as %s", req.Sender.Name)
		if req.Sender.Phone != "" {
			fmt.Fprintf(&b, ", %s", req.Sender.Phone)
		}
		b.WriteString(".\n")
	}
	return b.String()
}

// ParseEmail splits generated text into subject and body. A leading
// "Subject:" line becomes the subject and the rest the body; otherwise the
// subject is empty and the body is raw unchanged.
func ParseEmail(raw string) (subject, body string, err error) {
	if isBlank(raw) {
		return "", "", fmt.Errorf("%w: empty output", ErrMalformed)
	}
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	first, rest, _ := strings.Cut(trimmed, "\n")
	const prefix = "subject:"
	if len(first) < len(prefix) || !strings.EqualFold(first[:len(prefix)], prefix) {
		return "", raw, nil
	}

	subject = strings.TrimSpace(first[len(prefix):])
	subject = strings.Trim(subject, "*\"")
	body = strings.TrimSpace(rest)
	if body == "" {
		return "", "", fmt.Errorf("%w: subject without body", ErrMalformed)
	}
	return strings.TrimSpace(subject), body, nil
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
