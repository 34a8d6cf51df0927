package email

import (
	"bufio"
	"context"
	"io"
	"mime/quotedprintable"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEMessage(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	raw := string(buildMIMEMessage("noreply@almeone.com", Message{
		To:       "jane@example.com",
		ReplyTo:  "reply@example.com",
		Subject:  "Grüße - Ref: ALM-1",
		HTMLBody: "<p>Hi</p>",
	}, now))

	headers, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)

	assert.Contains(t, headers, "From: noreply@almeone.com\r\n")
	assert.Contains(t, headers, "To: jane@example.com\r\n")
	assert.Contains(t, headers, "Reply-To: reply@example.com\r\n")
	assert.Contains(t, headers, "Subject: =?utf-8?q?")
	assert.Contains(t, headers, "Date: Wed, 04 Mar 2026 05:06:07 +0000")
	assert.Contains(t, headers, "@almeone.com>")
	assert.Contains(t, headers, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, headers, "Content-Transfer-Encoding: quoted-printable")
	assert.Equal(t, "<p>Hi</p>", body)
}

func TestBuildMIMEMessage_LongBody(t *testing.T) {
	long := "<p>" + strings.Repeat("a", 5000) + " é</p>"
	raw := string(buildMIMEMessage("noreply@almeone.com", Message{
		To:       "jane@example.com",
		Subject:  "Long",
		HTMLBody: long,
	}, time.Now()))

	_, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)

	for _, line := range strings.Split(body, "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}

	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	assert.Equal(t, long, string(decoded))
}

func TestNewSMTPProvider(t *testing.T) {
	_, err := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com"})

	var nc *NotConfiguredError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, []string{"SMTP_USERNAME", "SMTP_PASSWORD"}, nc.Missing)

	p, err := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Username: "user@almeone.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "user@almeone.com", p.cfg.From)
	assert.Equal(t, "587", p.cfg.Port)
}

// fakeSMTPServer accepts one session without TLS or AUTH and returns the
// DATA payload it received.
func fakeSMTPServer(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
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
			case strings.HasPrefix(cmd, "EHLO"):
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				out <- string(data)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	return ln.Addr().String(), out
}

func TestSMTPProvider_Send(t *testing.T) {
	addr, received := fakeSMTPServer(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	p, err := NewSMTPProvider(SMTPConfig{Host: host, Port: port, Username: "user@almeone.com", Password: "secret"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.Send(ctx, Message{To: "jane@example.com", Subject: "Hello", HTMLBody: "<p>Hi</p>"})
	require.NoError(t, err)

	select {
	case data := <-received:
		r := textproto.NewReader(bufio.NewReader(strings.NewReader(data)))
		hdr, err := r.ReadMIMEHeader()
		require.NoError(t, err)
		assert.Equal(t, "user@almeone.com", hdr.Get("From"))
		assert.Equal(t, "jane@example.com", hdr.Get("To"))
		assert.Contains(t, data, "<p>Hi</p>")
	case <-time.After(time.Second):
		t.Fatal("server did not receive a message")
	}
}

func TestSMTPProvider_SendUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	host, port, _ := net.SplitHostPort(addr)
	p, err := NewSMTPProvider(SMTPConfig{Host: host, Port: port, Username: "u", Password: "p"})
	require.NoError(t, err)

	err = p.Send(context.Background(), Message{To: "jane@example.com", Subject: "Hello", HTMLBody: "<p>Hi</p>"})
	assert.ErrorIs(t, err, ErrSendFailed)
}
