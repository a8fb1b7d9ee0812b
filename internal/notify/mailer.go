package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/pkg/config"
)

// Mailer sends generated reports over SMTP
type Mailer struct {
	cfg  config.MailConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
	log  zerolog.Logger
}

// NewMailer creates a Mailer; the config must name a host, a sender and recipients
func NewMailer(cfg config.MailConfig, log zerolog.Logger) (*Mailer, error) {
	if cfg.Host == "" || cfg.Sender == "" || len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("SMTP_HOST, SMTP_SENDER and REPORT_RECIPIENTS are required for e-mail delivery")
	}
	return &Mailer{
		cfg:  cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
		log:  log.With().Str("component", "notify").Logger(),
	}, nil
}

// SendReport mails the PDF to every configured recipient. htmlBody is
// sent as is with a plain text alternative derived from it.
func (m *Mailer) SendReport(ctx context.Context, subject, htmlBody, fileName string, pdf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := m.message(subject, htmlBody, fileName, pdf)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	if err := m.send(e, addr, auth); err != nil {
		m.log.Error().Err(err).Strs("to", m.cfg.Recipients).Msg("Failed to send report")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info().Strs("to", m.cfg.Recipients).Str("subject", subject).Msg("Report sent")
	return nil
}

func (m *Mailer) message(subject, htmlBody, fileName string, pdf []byte) (*email.Email, error) {
	text, err := PlainText(htmlBody)
	if err != nil {
		return nil, err
	}

	e := email.NewEmail()
	e.From = m.cfg.Sender
	e.To = append([]string(nil), m.cfg.Recipients...)
	e.Subject = subject
	e.HTML = []byte(htmlBody)
	e.Text = []byte(text)

	if _, err := e.Attach(bytes.NewReader(pdf), fileName, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", fileName, err)
	}
	return e, nil
}

// PlainText flattens an HTML body: one line per heading, paragraph or
// table row, cells joined with ": " for two-column rows and " | " otherwise
func PlainText(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", fmt.Errorf("parse email body: %w", err)
	}

	var lines []string
	doc.Find("h1, h2, h3, p, tr").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "tr" {
			if t := collapse(s.Text()); t != "" {
				lines = append(lines, t)
			}
			return
		}

		var cells []string
		s.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, collapse(c.Text()))
		})
		sep := " | "
		if len(cells) == 2 {
			sep = ": "
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, sep))
		}
	})

	return strings.Join(lines, "\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
