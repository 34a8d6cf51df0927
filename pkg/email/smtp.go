package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"time"

	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPProvider authenticates with a static username/password. Each send opens
// its own connection, upgraded with STARTTLS when offered. Port 465 uses
// implicit TLS.
type SMTPProvider struct {
	cfg SMTPConfig
	now func() time.Time
}

func NewSMTPProvider(cfg SMTPConfig) (*SMTPProvider, error) {
	if cfg.From == "" {
		// Most relays only accept the authenticated user as sender.
		cfg.From = cfg.Username
	}

	var missing []string
	if cfg.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if cfg.Username == "" {
		missing = append(missing, "SMTP_USERNAME")
	}
	if cfg.Password == "" {
		missing = append(missing, "SMTP_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, &NotConfiguredError{Provider: "smtp", Missing: missing}
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}

	return &SMTPProvider{cfg: cfg, now: time.Now}, nil
}

func (s *SMTPProvider) Name() string { return "smtp" }

func (s *SMTPProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ErrSendFailed, s.addr(), err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("%w: smtp handshake: %v", ErrSendFailed, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("%w: starttls: %v", ErrSendFailed, err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("%w: auth: %v", ErrSendFailed, err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("%w: MAIL FROM: %v", ErrSendFailed, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("%w: RCPT TO: %v", ErrSendFailed, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA: %v", ErrSendFailed, err)
	}
	if _, err := w.Write(buildMIMEMessage(s.cfg.From, msg, s.now())); err != nil {
		return fmt.Errorf("%w: write body: %v", ErrSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: finish body: %v", ErrSendFailed, err)
	}

	return client.Quit()
}

func (s *SMTPProvider) addr() string {
	return net.JoinHostPort(s.cfg.Host, s.cfg.Port)
}

func (s *SMTPProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if s.cfg.Port == "465" {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}}
		return tlsDialer.DialContext(ctx, "tcp", s.addr())
	}
	return dialer.DialContext(ctx, "tcp", s.addr())
}

// buildMIMEMessage constructs a single-part HTML message. The body is
// quoted-printable so no line exceeds the SMTP line length limit.
func buildMIMEMessage(from string, msg Message, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domainOf(from))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&b)
	_, _ = qp.Write([]byte(msg.HTMLBody))
	_ = qp.Close()
	return b.Bytes()
}

func domainOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '@' {
			return addr[i+1:]
		}
	}
	return "localhost"
}
