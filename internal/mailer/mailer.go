// Package mailer delivers generated emails over SMTP, Amazon SES, or a
// logging dry-run transport.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSendFailure wraps every delivery error returned by a Sender.
var ErrSendFailure = errors.New("send failed")

// Message is one outgoing plain-text email.
type Message struct {
	FromAddress string
	FromName    string
	To          string
	Subject     string
	Body        string
	// MessageID is filled by NewMessageID when empty.
	MessageID string
	Date      time.Time
}

// Sender delivers one message and returns the transport's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
	Name() string
}

// Verifier is implemented by senders that can check their connection and
// credentials without delivering a message.
type Verifier interface {
	Verify(ctx context.Context) error
}

// NewMessageID returns an RFC 5322 Message-ID for the sender's domain.
func NewMessageID(fromAddress string) string {
	domain := "localhost"
	if _, d, ok := strings.Cut(fromAddress, "@"); ok && d != "" {
		domain = d
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func (m Message) from() string {
	if m.FromName == "" {
		return m.FromAddress
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.FromName), m.FromAddress)
}

// Bytes renders the message as RFC 5322 text with CRLF line endings.
func (m Message) Bytes() []byte {
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.from()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", m.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", date.Format(time.RFC1123Z)))
	if m.MessageID != "" {
		msg.WriteString(fmt.Sprintf("Message-ID: %s\r\n", m.MessageID))
	}
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	msg.WriteString("\r\n")
	return []byte(msg.String())
}

// WithSignature appends signature unless the body already mentions
// companyName.
func WithSignature(body, signature, companyName string) string {
	if signature == "" || (companyName != "" && strings.Contains(body, companyName)) {
		return body
	}
	return strings.TrimRight(body, "\n ") + "\n\n" + signature
}
