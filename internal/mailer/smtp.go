package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/freshstart/outreach/pkg/pipeline/core"
)

// TLS modes for SMTPConfig.TLSMode.
const (
	TLSModeStartTLS = "starttls"
	TLSModeTLS      = "tls"
	TLSModeNone     = "none"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLSMode is starttls (port 587), tls (implicit, port 465) or none.
	TLSMode     string
	DialTimeout time.Duration
	// InsecureSkipVerify is only meant for local test servers.
	InsecureSkipVerify bool
}

// SMTPSender opens one connection per message.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	switch cfg.TLSMode = strings.ToLower(strings.TrimSpace(cfg.TLSMode)); cfg.TLSMode {
	case "":
		cfg.TLSMode = TLSModeStartTLS
	case TLSModeStartTLS, TLSModeTLS, TLSModeNone:
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", cfg.TLSMode)
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.MessageID == "" {
		msg.MessageID = NewMessageID(msg.FromAddress)
	}
	if err := s.send(ctx, msg); err != nil {
		return "", classifySMTPErr(fmt.Errorf("%w: %w", ErrSendFailure, err))
	}
	return msg.MessageID, nil
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	client, done, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := client.Mail(msg.FromAddress); err != nil {
		return fmt.Errorf("SMTP MAIL failed: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("SMTP RCPT failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA failed: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("SMTP write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP close failed: %w", err)
	}
	// The message is accepted once DATA closes cleanly.
	_ = client.Quit()
	return nil
}

// Verify connects, negotiates TLS and authenticates exactly as Send does,
// then quits without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	client, done, err := s.open(ctx)
	if err != nil {
		return classifySMTPErr(err)
	}
	defer done()
	if err := client.Quit(); err != nil {
		return classifySMTPErr(fmt.Errorf("SMTP QUIT failed: %w", err))
	}
	return nil
}

// open returns a client that is past STARTTLS and AUTH. done releases it.
func (s *SMTPSender) open(ctx context.Context) (*smtp.Client, func(), error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	tlsConfig := &tls.Config{
		ServerName:         s.cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}

	dialer := &net.Dialer{Timeout: s.cfg.DialTimeout}
	var conn net.Conn
	var err error
	if s.cfg.TLSMode == TLSModeTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("SMTP dial failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		stop()
		conn.Close()
		return nil, nil, fmt.Errorf("SMTP client failed: %w", err)
	}
	done := func() {
		stop()
		client.Close()
	}

	if s.cfg.TLSMode == TLSModeStartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			done()
			return nil, nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			done()
			return nil, nil, fmt.Errorf("SMTP auth failed: %w", err)
		}
	}
	return client, done, nil
}

// classifySMTPErr marks 4xx replies and network timeouts as retryable.
func classifySMTPErr(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 400 && tpErr.Code < 500 {
		return &core.LimitedTransientError{Err: err, ExtraRetries: 2}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &core.TransientError{Err: err}
	}
	return err
}
