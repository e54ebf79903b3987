// Package mail delivers email actions over SMTP.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/core"
)

// ErrNoRecipients is returned when a message has no to, cc or bcc address.
var ErrNoRecipients = errors.New("email has no recipients")

var _ core.EmailSender = (*Sender)(nil)

// Config is the SMTP account used to send emails.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Sender sends emails through one SMTP server.
type Sender struct {
	cfg Config
}

// New returns a sender for the given account.
func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

var (
	replacer = strings.NewReplacer("\r\n", "", "\r", "", "\n", "", "%0a", "", "%0d", "")
	boundary = "==simple-boundary-watcher-mailer"
)

// Send implements core.EmailSender.
func (s *Sender) Send(ctx context.Context, msg core.EmailMessage) error {
	recipients := make([]string, 0, len(msg.To)+len(msg.CC)+len(msg.BCC))
	for _, addrs := range [][]string{msg.To, msg.CC, msg.BCC} {
		for _, a := range addrs {
			recipients = append(recipients, replacer.Replace(a))
		}
	}
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	from := replacer.Replace(msg.From)

	logger.Info(ctx, "Sending an email",
		tag.String("to", strings.Join(msg.To, ",")),
		tag.String("subject", msg.Subject),
	)

	data := composeMail(msg)
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if s.cfg.Username == "" && s.cfg.Password == "" {
		return s.sendWithNoAuth(ctx, addr, from, recipients, data)
	}
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(addr, auth, from, recipients, data); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Sender) sendWithNoAuth(ctx context.Context, addr, from string, to []string, data []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		_ = c.Close()
	}()
	if err = c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err = c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = wc.Write(data); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func composeHeader(msg core.EmailMessage) string {
	var b strings.Builder
	b.WriteString("To: " + replacer.Replace(strings.Join(msg.To, ",")) + "\r\n")
	if len(msg.CC) > 0 {
		b.WriteString("Cc: " + replacer.Replace(strings.Join(msg.CC, ",")) + "\r\n")
	}
	if len(msg.ReplyTo) > 0 {
		b.WriteString("Reply-To: " + replacer.Replace(strings.Join(msg.ReplyTo, ",")) + "\r\n")
	}
	b.WriteString("From: " + replacer.Replace(msg.From) + "\r\n")
	b.WriteString("Subject: " + replacer.Replace(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed;\r\n")
	b.WriteString("  boundary=\"" + boundary + "\"\r\n\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	return b.String()
}

func composeMail(msg core.EmailMessage) []byte {
	var buf bytes.Buffer
	buf.WriteString(composeHeader(msg))
	buf.WriteString("\r\n" + base64.StdEncoding.EncodeToString([]byte(newlineToBrTag(msg.Body))))
	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&buf, "\r\n\r\n--%s\r\n", boundary)
		buf.WriteString("Content-Type: " + contentType + "\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		buf.WriteString("Content-Disposition: attachment; filename=\"" + replacer.Replace(a.Name) + "\"\r\n\r\n")
		buf.WriteString(base64.StdEncoding.EncodeToString(a.Data))
	}
	buf.WriteString("\r\n\r\n--" + boundary + "--\r\n")
	return buf.Bytes()
}

func newlineToBrTag(body string) string {
	return strings.NewReplacer("\r\n", "<br />", "\r", "<br />", "\n", "<br />").Replace(body)
}
