package auth

import (
	"strings"
	"time"
)

// Event is an auth state transition
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// User is the authenticated account as returned by the auth backend
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Role         string                 `json:"role,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Session is an access/refresh token pair
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expiry returns when the access token expires (zero when unknown)
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the token expires before now+margin.
// A session without expiry information never expires.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	exp := s.Expiry()
	return !exp.IsZero() && !now.Add(margin).Before(exp)
}

// DisplayName picks the name shown for a user: preferred (a name the
// caller already knows), then metadata full_name, nombre, name, then the
// local part of the e-mail, then "Usuario".
func DisplayName(u *User, preferred string) string {
	if p := strings.TrimSpace(preferred); p != "" {
		return p
	}
	if u == nil {
		return "Usuario"
	}
	for _, key := range []string{"full_name", "nombre", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return "Usuario"
}
