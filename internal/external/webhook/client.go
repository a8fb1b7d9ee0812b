package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tupakrantina/backoffice/pkg/httputil"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// ErrNoLink means the webhook accepted the lead but returned no link
var ErrNoLink = errors.New("Datos enviados, pero no se recibió enlace.")

// Lead is a validated lead as sent to the workflow webhook
type Lead struct {
	Nombre   string
	Cedula   string // digits only; quoted on the wire so spreadsheets keep leading zeros
	WhatsApp string
}

type payload struct {
	Nombre   string `json:"nombre"`
	Cedula   string `json:"cedula"`
	WhatsApp string `json:"whatsapp"`
}

type linkResponse struct {
	Link string `json:"Link"`
}

// Client posts leads to the workflow webhook
type Client struct {
	http   *httputil.Client
	url    string
	logger *logger.Logger
}

// NewClient creates a webhook client; url must not be empty
func NewClient(url string, log *logger.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("LEAD_WEBHOOK_URL is required")
	}
	return &Client{
		// a retried POST would register the lead twice
		http:   httputil.NewWithTimeout(log, 30*time.Second).DisableRetry(),
		url:    url,
		logger: log.WithComponent("webhook"),
	}, nil
}

// Submit posts the lead and returns the generated link
func (c *Client) Submit(ctx context.Context, lead Lead) (string, error) {
	var raw json.RawMessage
	body := payload{Nombre: lead.Nombre, Cedula: "'" + lead.Cedula, WhatsApp: lead.WhatsApp}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url, body, &raw); err != nil {
		return "", fmt.Errorf("submit lead: %w", err)
	}

	link, err := ExtractLink(raw)
	if err != nil {
		return "", err
	}

	c.logger.WithField("whatsapp", lead.WhatsApp).Info("Lead submitted")
	return link, nil
}

// ExtractLink reads "Link" from the first array element or from the
// object itself. A missing or blank link is ErrNoLink.
func ExtractLink(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", ErrNoLink
	}

	var resp linkResponse
	switch raw[0] {
	case '[':
		var items []linkResponse
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", fmt.Errorf("decode webhook response: %w", err)
		}
		if len(items) > 0 {
			resp = items[0]
		}
	case '{':
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", fmt.Errorf("decode webhook response: %w", err)
		}
	default:
		return "", ErrNoLink
	}

	link := strings.TrimSpace(resp.Link)
	if link == "" {
		return "", ErrNoLink
	}
	return link, nil
}
