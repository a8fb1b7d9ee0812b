package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tupakrantina/backoffice/pkg/httputil"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// ErrInvalidCredentials is returned for a rejected e-mail/password pair
var ErrInvalidCredentials = errors.New("credenciales inválidas")

// Client talks to the hosted auth REST API (/auth/v1)
type Client struct {
	baseURL string
	anonKey string
	http    *httputil.Client
}

// NewClient creates a client for baseURL using the project's anon key
func NewClient(baseURL, anonKey string, log *logger.Logger) *Client {
	h := httputil.NewWithTimeout(log, 15*time.Second).
		DisableRetry().
		WithHeader("apikey", anonKey)
	return &Client{baseURL: baseURL, anonKey: anonKey, http: h}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/auth/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// PasswordGrant signs in with e-mail and password
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint("/token", url.Values{"grant_type": {"password"}}), body, &s)
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &s, nil
}

// RefreshGrant exchanges a refresh token for a new session
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint("/token", url.Values{"grant_type": {"refresh_token"}}), body, &s); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return &s, nil
}

// Logout revokes the session of accessToken
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/logout", nil), nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("sign out: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// GetUser returns the account behind accessToken
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/user", nil), nil)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var u User
	if err := c.http.DoRequestJSON(req, &u); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
