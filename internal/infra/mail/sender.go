package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/course-funnel/internal/entity"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*
var templateFS embed.FS

const confirmationSubject = "✅ Registration Successful - Complete Your Payment"

var ErrNotConfigured = errors.New("email service not configured")

type EmailSender struct {
	cfg  Config
	html *htmltemplate.Template
	text *texttemplate.Template

	// transport overrides SMTP dialing; nil means dial cfg.Host.
	transport gomail.Sender
}

func NewEmailSender(cfg Config) (*EmailSender, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/confirmation.html")
	if err != nil {
		return nil, fmt.Errorf("reading email template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/confirmation.txt")
	if err != nil {
		return nil, fmt.Errorf("reading email template: %w", err)
	}

	return &EmailSender{cfg: cfg, html: html, text: text}, nil
}

// WithTransport routes messages through s instead of an SMTP dial.
func (s *EmailSender) WithTransport(t gomail.Sender) *EmailSender {
	s.transport = t
	return s
}

func (s *EmailSender) Configured() bool {
	return s.cfg.User != "" && s.cfg.Password != ""
}

// SendConfirmation renders and sends the payment-link email. One attempt,
// no retry. The returned id is the Message-ID header that was sent.
func (s *EmailSender) SendConfirmation(ctx context.Context, email ConfirmationEmail) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	htmlBody, textBody, err := s.render(email)
	if err != nil {
		return "", err
	}

	messageID := s.newMessageID()

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.User, s.cfg.FromName))
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", confirmationSubject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if s.transport != nil {
		err = gomail.Send(s.transport, m)
	} else {
		err = s.dialer().DialAndSend(m)
	}
	if err != nil {
		return "", fmt.Errorf("sending SMTP email: %w", err)
	}

	return messageID, nil
}

func (s *EmailSender) render(email ConfirmationEmail) (string, string, error) {
	data := confirmationData{
		Name:        email.Name,
		CourseName:  entity.CourseDisplayName(email.Course),
		PaymentLink: s.cfg.PaymentLink,
		Year:        time.Now().Year(),
	}

	var html bytes.Buffer
	if err := s.html.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("rendering email template: %w", err)
	}
	var text bytes.Buffer
	if err := s.text.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("rendering email template: %w", err)
	}
	return html.String(), text.String(), nil
}

func (s *EmailSender) dialer() *gomail.Dialer {
	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	d.SSL = s.cfg.Secure
	if s.cfg.TLSSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: s.cfg.Host, InsecureSkipVerify: true}
	}
	return d
}

func (s *EmailSender) newMessageID() string {
	domain := "localhost"
	if at := strings.LastIndex(s.cfg.User, "@"); at >= 0 && at < len(s.cfg.User)-1 {
		domain = s.cfg.User[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}
