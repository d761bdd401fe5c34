// Package mailer delivers HTML e-mails through Resend or SMTP.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"projecthub/internal/config"
)

const resendURL = "https://api.resend.com/emails"

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer picks SMTP when enabled, Resend when an API key is set, and only logs otherwise.
type Mailer struct {
	cfg      config.EmailConfig
	client   *http.Client
	endpoint string
}

// New creates a Mailer.
func New(cfg config.EmailConfig) *Mailer {
	return &Mailer{
		cfg:      cfg,
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: resendURL,
	}
}

// Send delivers one message.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	switch {
	case m.cfg.SMTPEnabled:
		return m.sendViaSMTP(to, subject, html)
	case m.cfg.ResendAPIKey != "":
		return m.sendViaResend(ctx, to, subject, html)
	}
	log.Printf("mailer: no transport configured, dropping mail to %s: %s", to, subject)
	return nil
}

func (m *Mailer) sendViaResend(ctx context.Context, to, subject, html string) error {
	body := resendRequest{
		From:    m.cfg.FromEmail,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.ResendAPIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

func (m *Mailer) sendViaSMTP(to, subject, html string) error {
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.SMTPUser, []string{to}, buildMessage(m.cfg.FromEmail, to, subject, html)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, html string) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		html)
}
