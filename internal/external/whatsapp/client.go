package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tupakrantina/backoffice/pkg/config"
	"github.com/tupakrantina/backoffice/pkg/httputil"
	"github.com/tupakrantina/backoffice/pkg/logger"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

// Result is the canonical answer of a number check
type Result struct {
	Exists bool   `json:"exists"`
	Number string `json:"number"`
	JID    string `json:"jid,omitempty"`
}

// Client checks whether a phone number has a WhatsApp account.
// ⭐ SSOT: number verification calls go through this client only
type Client struct {
	http     *httputil.Client
	url      string
	limiter  *rate.Limiter
	group    singleflight.Group
	cache    *redis.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewClient creates a client for the configured instance. cache may be
// backed by a disabled Redis client.
func NewClient(cfg config.WhatsAppConfig, cache *redis.Cache, log *logger.Logger) *Client {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		http: httputil.NewWithTimeout(log, 15*time.Second).
			WithRetry(2, 300*time.Millisecond).
			WithHeader("apikey", cfg.APIKey),
		url:      fmt.Sprintf("%s/chat/whatsappNumbers/%s", cfg.BaseURL, cfg.Instance),
		limiter:  rate.NewLimiter(rate.Limit(perSec), burst),
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		logger:   log.WithComponent("whatsapp"),
	}
}

// Verify checks number (any formatting; digits are kept). Concurrent
// checks of the same number share one request; answers are cached.
func (c *Client) Verify(ctx context.Context, number string) (Result, error) {
	digits := Digits(number)
	if digits == "" {
		return Result{}, fmt.Errorf("empty phone number")
	}

	var cached Result
	if ok, err := c.cache.Get(ctx, redis.WhatsAppKey(digits), &cached); err != nil {
		c.logger.WithError(err).Warn("WhatsApp cache read failed")
	} else if ok {
		return cached, nil
	}

	ch := c.group.DoChan(digits, func() (interface{}, error) {
		// detached so one caller giving up does not fail the others
		return c.lookup(context.WithoutCancel(ctx), digits)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (c *Client) lookup(ctx context.Context, digits string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	var raw json.RawMessage
	body := map[string][]string{"numbers": {digits}}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url, body, &raw); err != nil {
		return Result{}, fmt.Errorf("verify %s: %w", digits, err)
	}

	res, err := Normalize(raw, digits)
	if err != nil {
		return Result{}, err
	}

	if err := c.cache.Set(ctx, redis.WhatsAppKey(digits), res, c.cacheTTL); err != nil {
		c.logger.WithError(err).Warn("WhatsApp cache write failed")
	}

	c.logger.WithFields(map[string]interface{}{
		"number": digits,
		"exists": res.Exists,
	}).Info("WhatsApp number checked")

	return res, nil
}

// Normalize turns the endpoint's array-or-object answer into a Result.
// An empty answer means the number does not exist.
func Normalize(raw []byte, number string) (Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Result{Number: number}, nil
	}

	var item Result
	switch raw[0] {
	case '[':
		var items []Result
		if err := json.Unmarshal(raw, &items); err != nil {
			return Result{}, fmt.Errorf("decode verification: %w", err)
		}
		if len(items) == 0 {
			return Result{Number: number}, nil
		}
		item = items[0]
	case '{':
		if err := json.Unmarshal(raw, &item); err != nil {
			return Result{}, fmt.Errorf("decode verification: %w", err)
		}
	default:
		return Result{}, fmt.Errorf("unexpected verification payload: %.64s", raw)
	}

	if item.Number == "" {
		item.Number = number
	}
	return item, nil
}

// Digits strips everything but 0-9
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
