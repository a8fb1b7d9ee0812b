package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupakrantina/backoffice/pkg/config"
)

func testConfig() config.MailConfig {
	return config.MailConfig{
		Host:       "smtp.example.com",
		Port:       "587",
		Username:   "reportes",
		Password:   "secret",
		Sender:     "reportes@example.com",
		Recipients: []string{"gerencia@example.com", "cartera@example.com"},
	}
}

func TestNewMailerRequiresConfig(t *testing.T) {
	_, err := NewMailer(config.MailConfig{Host: "smtp.example.com"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSendReport(t *testing.T) {
	m, err := NewMailer(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	var (
		sent *email.Email
		addr string
	)
	m.send = func(e *email.Email, a string, auth smtp.Auth) error {
		sent, addr = e, a
		assert.NotNil(t, auth)
		return nil
	}

	body := "<h2>Reporte de Cartera</h2><p>Adjunto.</p>"
	err = m.SendReport(context.Background(), "Reporte de Cartera - Marzo 2024", body, "Reporte.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)

	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, "reportes@example.com", sent.From)
	assert.Equal(t, []string{"gerencia@example.com", "cartera@example.com"}, sent.To)
	assert.Equal(t, body, string(sent.HTML))
	assert.Equal(t, "Reporte de Cartera\nAdjunto.", string(sent.Text))
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "Reporte.pdf", sent.Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF-1.3"), sent.Attachments[0].Content)
}

func TestSendReportErrors(t *testing.T) {
	m, err := NewMailer(testConfig(), zerolog.Nop())
	require.NoError(t, err)
	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	err = m.SendReport(context.Background(), "s", "b", "r.pdf", []byte("x"))
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.SendReport(ctx, "s", "b", "r.pdf", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "headings and paragraphs",
			html: "<h2>Reporte   de Cartera</h2>\n<p>Adjunto el\n reporte.</p>",
			want: "Reporte de Cartera\nAdjunto el reporte.",
		},
		{
			name: "label rows",
			html: "<table><tr><td>Créditos</td><td><b>12</b></td></tr></table>",
			want: "Créditos: 12",
		},
		{
			name: "wide rows",
			html: "<table><tr><th>Asesor</th><th>Créditos</th><th>Monto</th></tr><tr><td>Ana</td><td>3</td><td>$1,500.00</td></tr></table>",
			want: "Asesor | Créditos | Monto\nAna | 3 | $1,500.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlainText(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
