package emailsend

import (
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"collision-site/internal/common/logger"
	"collision-site/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts sessions and records what the client sent.
type fakeSMTP struct {
	ln         net.Listener
	rejectRcpt bool

	mu       sync.Mutex
	from     []string
	rcpt     []string
	messages []string
}

func startFakeSMTP(t *testing.T, rejectRcpt bool) *fakeSMTP {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTP{ln: ln, rejectRcpt: rejectRcpt}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			s.mu.Lock()
			s.from = append(s.from, line[len("MAIL FROM:"):])
			s.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			if s.rejectRcpt {
				_ = tp.PrintfLine("550 no such user")
				continue
			}
			s.mu.Lock()
			s.rcpt = append(s.rcpt, line[len("RCPT TO:"):])
			s.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, string(data))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func (s *fakeSMTP) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func newTestService(t *testing.T, port int) *Service {
	svc, err := NewService(&Config{
		SMTPHost: "127.0.0.1",
		SMTPPort: port,
		Timeout:  5 * time.Second,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC) }
	return svc
}

func testMessage() models.EmailMessage {
	return models.EmailMessage{
		FromName:    "Taylor's Collision Website",
		FromAddress: "site@example.com",
		To:          "support@taylorscollision.com",
		Subject:     "New Contact Message from Jane Doe",
		HTMLBody:    "<h2>New Contact Message</h2><p>hello</p>",
	}
}

func TestService_Send(t *testing.T) {
	srv := startFakeSMTP(t, false)
	svc := newTestService(t, srv.port())

	require.NoError(t, svc.Send(context.Background(), testMessage()))

	msgs := srv.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `From: "Taylor's Collision Website" <site@example.com>`)
	assert.Contains(t, msgs[0], "To: support@taylorscollision.com")
	assert.Contains(t, msgs[0], "Subject: New Contact Message from Jane Doe")
	assert.Contains(t, msgs[0], "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, msgs[0], "<p>hello</p>")

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.from[0], "<site@example.com>")
	assert.Contains(t, srv.rcpt[0], "<support@taylorscollision.com>")
}

func TestService_Send_RecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t, true)
	svc := newTestService(t, srv.port())

	err := svc.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set recipient")
	assert.Empty(t, srv.sent())
}

func TestService_Send_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = newTestService(t, port).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestService_Send_RequiresTLSWhenConfigured(t *testing.T) {
	srv := startFakeSMTP(t, false)
	svc := newTestService(t, srv.port())
	svc.config.UseTLS = true

	err := svc.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support STARTTLS")
	assert.Empty(t, srv.sent())
}

func TestService_Send_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestService(t, 2525).Send(ctx, testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestBuildEmailMessage_Multipart(t *testing.T) {
	svc := newTestService(t, 2525)
	msg := testMessage()
	msg.TextBody = "hello"
	msg.Subject = "New Job Application — Painter — Jane Doe"

	raw, err := svc.buildEmailMessage(msg)
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, s, "Subject: =?utf-8?q?")
	assert.Contains(t, s, "Date: Fri, 15 Mar 2024 18:30:00 +0000")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.SMTPPort = 70000
	assert.EqualError(t, cfg.Validate(), "smtp_port must be between 1 and 65535")

	cfg = DefaultConfig()
	cfg.SMTPHost = ""
	assert.EqualError(t, cfg.Validate(), "smtp_host is required")

	cfg = DefaultConfig()
	cfg.SMTPUsername = "user"
	assert.Error(t, cfg.Validate())

	assert.Equal(t, "smtp.gmail.com:"+strconv.Itoa(587), DefaultConfig().Addr())
}

func TestService_TestConnection(t *testing.T) {
	srv := startFakeSMTP(t, false)

	require.NoError(t, newTestService(t, srv.port()).TestConnection(context.Background()))
	assert.Empty(t, srv.sent())
}

func TestService_TestConnection_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = newTestService(t, port).TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to SMTP server")
}
