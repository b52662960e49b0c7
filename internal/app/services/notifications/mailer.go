package notifications

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Email is one outgoing message with HTML and optional plain-text parts.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers email.
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, e Email) error
}

// SMTPSettings configure the SMTP mailer.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail with net/smtp. SendMail upgrades to STARTTLS when the
// server advertises it.
type SMTPMailer struct {
	cfg  SMTPSettings
	log  *logger.Logger
	send sendFunc
}

// NewSMTPMailer builds a mailer from cfg.
func NewSMTPMailer(cfg SMTPSettings, log *logger.Logger) *SMTPMailer {
	if log == nil {
		log = logger.NewDefault("mailer")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Configured reports whether host and credentials are set.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Username != "" && m.cfg.Password != ""
}

// Send delivers e. An unconfigured mailer logs and returns an error.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if !m.Configured() {
		m.log.Warn("email service not configured, skipping send")
		return fmt.Errorf("smtp not configured")
	}
	if len(e.To) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.compose(e)
	if err != nil {
		return err
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.From, e.To, msg); err != nil {
		m.log.WithError(err).WithField("to", e.To).Error("email send failed")
		return fmt.Errorf("send email: %w", err)
	}
	m.log.WithField("to", e.To).Info("email sent")
	return nil
}

func (m *SMTPMailer) compose(e Email) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		ctype   string
		content string
	}{
		{"text/plain; charset=UTF-8", e.Text},
		{"text/html; charset=UTF-8", e.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.cfg.FromName), m.cfg.From)
	}
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
