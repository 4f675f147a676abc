package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshstart/outreach/pkg/pipeline/core"
)

// fakeSMTP is a minimal plaintext SMTP server. rcptReply overrides the
// response to RCPT TO and authReply the response to AUTH.
type fakeSMTP struct {
	ln        net.Listener
	rcptReply string
	authReply string

	mu   sync.Mutex
	data []string
	cmds []string
	wg   sync.WaitGroup
}

func startFakeSMTP(t *testing.T, rcptReply string) *fakeSMTP {
	t.Helper()
	return serveFakeSMTP(t, &fakeSMTP{rcptReply: rcptReply})
}

func serveFakeSMTP(t *testing.T, s *fakeSMTP) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.ln = ln
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	tp := textproto.NewConn(conn)
	reply := func(line string) { _ = tp.PrintfLine("%s", line) }

	reply("220 fake.test ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		if f := strings.Fields(cmd); len(f) > 0 {
			s.mu.Lock()
			s.cmds = append(s.cmds, f[0])
			s.mu.Unlock()
		}
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250-fake.test")
			reply("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			if s.rcptReply != "" {
				reply(s.rcptReply)
			} else {
				reply("250 OK")
			}
		case cmd == "DATA":
			reply("354 go ahead")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = append(s.data, strings.Join(lines, "\n"))
			s.mu.Unlock()
			reply("250 queued")
		case strings.HasPrefix(cmd, "AUTH"):
			if s.authReply != "" {
				reply(s.authReply)
			} else {
				reply("235 2.7.0 accepted")
			}
		case cmd == "RSET", cmd == "NOOP":
			reply("250 OK")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (s *fakeSMTP) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.data...)
}

func (s *fakeSMTP) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := startFakeSMTP(t, "")
	sender, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), TLSMode: TLSModeNone})
	require.NoError(t, err)

	id, err := sender.Send(context.Background(), Message{
		FromAddress: "hello@freshstart.example",
		To:          "facilities@turner.com",
		Subject:     "Professional Cleaning Services for Turner Industries",
		Body:        "Hello Turner",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@freshstart.example>"))

	msgs := srv.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Subject: Professional Cleaning Services for Turner Industries")
	assert.Contains(t, msgs[0], "Message-ID: "+id)
	assert.Contains(t, msgs[0], "Hello Turner")
}

func TestSMTPSenderClassifiesReplies(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantTransient bool
	}{
		{name: "greylisted", reply: "451 4.7.1 try again later", wantTransient: true},
		{name: "no such user", reply: "550 5.1.1 user unknown", wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startFakeSMTP(t, tt.reply)
			sender, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), TLSMode: TLSModeNone})
			require.NoError(t, err)

			_, err = sender.Send(context.Background(), Message{FromAddress: "a@b.test", To: "c@d.test"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSendFailure)

			var lte *core.LimitedTransientError
			assert.Equal(t, tt.wantTransient, errors.As(err, &lte))
			assert.Empty(t, srv.messages())
		})
	}
}

func TestSMTPSenderUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, TLSMode: TLSModeNone, DialTimeout: time.Second})
	require.NoError(t, err)
	_, err = sender.Send(context.Background(), Message{FromAddress: "a@b.test", To: "c@d.test"})
	assert.ErrorIs(t, err, ErrSendFailure)
}

func TestNewSMTPSenderValidates(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{})
	assert.Error(t, err)

	_, err = NewSMTPSender(SMTPConfig{Host: "mail.test", TLSMode: "ssl3"})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "mail.test"})
	require.NoError(t, err)
	assert.Equal(t, TLSModeStartTLS, s.cfg.TLSMode)
	assert.Equal(t, 587, s.cfg.Port)
	assert.Equal(t, "smtp", s.Name())
	assert.Equal(t, "mail.test:587", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
}

func TestSMTPSenderVerify(t *testing.T) {
	srv := startFakeSMTP(t, "")
	sender, err := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "hello@freshstart.example",
		Password: "app-password",
		TLSMode:  TLSModeNone,
	})
	require.NoError(t, err)

	require.NoError(t, sender.Verify(context.Background()))
	assert.Equal(t, []string{"EHLO", "AUTH", "QUIT"}, srv.commands())
	assert.Empty(t, srv.messages())
}

func TestSMTPSenderVerifyRejectedLogin(t *testing.T) {
	srv := serveFakeSMTP(t, &fakeSMTP{authReply: "535 5.7.8 bad credentials"})
	sender, err := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "hello@freshstart.example",
		Password: "wrong",
		TLSMode:  TLSModeNone,
	})
	require.NoError(t, err)

	err = sender.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth failed")
	var tpErr *textproto.Error
	require.ErrorAs(t, err, &tpErr)
	assert.Equal(t, 535, tpErr.Code)
	var lte *core.LimitedTransientError
	assert.False(t, errors.As(err, &lte))
	assert.NotContains(t, srv.commands(), "MAIL")
}

func TestSMTPSenderVerifyUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, TLSMode: TLSModeNone, DialTimeout: time.Second})
	require.NoError(t, err)
	err = sender.Verify(context.Background())
	assert.ErrorContains(t, err, "dial failed")
}
