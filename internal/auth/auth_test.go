package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupakrantina/backoffice/pkg/logger"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		user      *User
		preferred string
		want      string
	}{
		{"preferred wins", &User{Email: "ana@x.com"}, "Ana María", "Ana María"},
		{"full_name", &User{UserMetadata: map[string]interface{}{"full_name": "Luis Pinta", "nombre": "Luis"}}, "", "Luis Pinta"},
		{"nombre", &User{UserMetadata: map[string]interface{}{"nombre": "Luis"}}, "", "Luis"},
		{"name", &User{UserMetadata: map[string]interface{}{"name": "L"}}, "", "L"},
		{"blank metadata skipped", &User{Email: "gerencia@caja.ec", UserMetadata: map[string]interface{}{"full_name": "  "}}, "", "gerencia"},
		{"non-string metadata skipped", &User{Email: "x@y", UserMetadata: map[string]interface{}{"name": 42}}, "", "x"},
		{"nothing", &User{}, "", "Usuario"},
		{"nil user", nil, "", "Usuario"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.user, tt.preferred))
		})
	}
}

func TestSessionExpiresWithin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, (&Session{}).ExpiresWithin(now, time.Minute))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Hour).Unix()}).ExpiresWithin(now, time.Minute))
	assert.True(t, (&Session{ExpiresAt: now.Add(30 * time.Second).Unix()}).ExpiresWithin(now, time.Minute))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Hour).Unix()}).ExpiresWithin(now, time.Minute))
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		switch {
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","expires_in":3600,"expires_at":1700003600,"user":{"id":"u1","email":"ana@caja.ec"}}`))
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "refresh_token":
			_, _ = w.Write([]byte(`{"access_token":"a2","refresh_token":"r2"}`))
		case r.URL.Path == "/auth/v1/logout":
			assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","email":"ana@caja.ec","user_metadata":{"full_name":"Ana"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", logger.Nop())
	ctx := context.Background()

	s, err := c.PasswordGrant(ctx, "ana@caja.ec", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a1", s.AccessToken)
	assert.Equal(t, "u1", s.User.ID)

	_, err = c.PasswordGrant(ctx, "ana@caja.ec", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s2, err := c.RefreshGrant(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "a2", s2.AccessToken)

	require.NoError(t, c.Logout(ctx, "a1"))

	u, err := c.GetUser(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", DisplayName(u, ""))
}

type fakeBackend struct {
	refreshErr error
	logoutErr  error
	refreshed  int
}

func (f *fakeBackend) PasswordGrant(ctx context.Context, email, password string) (*Session, error) {
	if password != "secret" {
		return nil, ErrInvalidCredentials
	}
	return &Session{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: 1000, User: &User{ID: "u1", Email: email}}, nil
}

func (f *fakeBackend) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.refreshed++
	return &Session{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: 99999}, nil
}

func (f *fakeBackend) Logout(ctx context.Context, accessToken string) error {
	return f.logoutErr
}

func newTestCoordinator(b Backend, now int64) *Coordinator {
	c := NewCoordinator(b, zerolog.Nop())
	c.now = func() time.Time { return time.Unix(now, 0) }
	return c
}

func TestCoordinatorLifecycle(t *testing.T) {
	b := &fakeBackend{}
	c := newTestCoordinator(b, 500)
	ctx := context.Background()

	var events []Event
	unsubscribe := c.OnAuthStateChange(func(e Event, s *Session) { events = append(events, e) })

	_, err := c.GetSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.SignIn(ctx, "ana@caja.ec", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, c.IsAuthenticated())

	_, err = c.SignIn(ctx, "ana@caja.ec", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.CurrentUser().ID)

	// valid until 1000, now is 500: no refresh
	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", s.AccessToken)

	c.now = func() time.Time { return time.Unix(990, 0) }
	s, err = c.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", s.AccessToken)
	assert.Equal(t, "u1", s.User.ID, "user carried over from the previous session")
	assert.Equal(t, 1, b.refreshed)

	require.NoError(t, c.SignOut(ctx))
	assert.False(t, c.IsAuthenticated())
	assert.Nil(t, c.CurrentUser())

	assert.Equal(t, []Event{EventSignedIn, EventTokenRefreshed, EventSignedOut}, events)

	unsubscribe()
	unsubscribe()
	_, err = c.SignIn(ctx, "ana@caja.ec", "secret")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestCoordinatorSignOutClearsOnRemoteFailure(t *testing.T) {
	c := newTestCoordinator(&fakeBackend{logoutErr: errors.New("network down")}, 0)
	ctx := context.Background()

	_, err := c.SignIn(ctx, "ana@caja.ec", "secret")
	require.NoError(t, err)

	err = c.SignOut(ctx)
	assert.ErrorContains(t, err, "network down")
	assert.False(t, c.IsAuthenticated())
}

func TestCoordinatorFailedRefreshSignsOut(t *testing.T) {
	c := newTestCoordinator(&fakeBackend{refreshErr: errors.New("revoked")}, 2000)
	ctx := context.Background()

	var got []Event
	c.OnAuthStateChange(func(e Event, s *Session) { got = append(got, e) })

	_, err := c.SignIn(ctx, "ana@caja.ec", "secret")
	require.NoError(t, err)

	_, err = c.GetSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, []Event{EventSignedIn, EventSignedOut}, got)
}

// rotatingBackend consumes each refresh token on use
type rotatingBackend struct {
	fakeBackend

	mu      sync.Mutex
	used    map[string]bool
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (r *rotatingBackend) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	r.mu.Lock()
	r.calls++
	reused := r.used[refreshToken]
	r.used[refreshToken] = true
	r.mu.Unlock()

	if reused {
		return nil, errors.New("refresh token already used")
	}
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-r.release
	return &Session{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: 99999}, nil
}

func TestCoordinatorConcurrentRefreshRunsOnce(t *testing.T) {
	tests := []struct {
		name    string
		callers int
	}{
		{"two callers", 2},
		{"many callers", 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &rotatingBackend{
				used:    make(map[string]bool),
				entered: make(chan struct{}, 1),
				release: make(chan struct{}),
			}
			c := newTestCoordinator(b, 990)
			c.Restore(&Session{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: 1000, User: &User{ID: "u1"}})

			var refreshed int
			var evMu sync.Mutex
			c.OnAuthStateChange(func(e Event, s *Session) {
				evMu.Lock()
				defer evMu.Unlock()
				if e == EventTokenRefreshed {
					refreshed++
				}
			})

			var wg sync.WaitGroup
			sessions := make([]*Session, tt.callers)
			errs := make([]error, tt.callers)
			for i := 0; i < tt.callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					sessions[i], errs[i] = c.GetSession(context.Background())
				}(i)
			}

			<-b.entered
			time.Sleep(20 * time.Millisecond)
			close(b.release)
			wg.Wait()

			for i := range sessions {
				require.NoError(t, errs[i])
				assert.Equal(t, "a2", sessions[i].AccessToken)
				assert.Equal(t, "u1", sessions[i].User.ID)
			}
			assert.Equal(t, 1, b.calls)
			assert.Equal(t, 1, refreshed)
			assert.True(t, c.IsAuthenticated())
		})
	}
}

func TestVerifier(t *testing.T) {
	_, err := NewVerifier("")
	assert.Error(t, err)

	v, err := NewVerifier("super-secret")
	require.NoError(t, err)

	valid, err := v.Sign(&Claims{
		Email: "ana@caja.ec",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	claims, err := v.Verify(valid)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.User().ID)
	assert.Equal(t, "ana@caja.ec", claims.User().Email)

	expired, err := v.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noExp, err := v.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	require.NoError(t, err)
	_, err = v.Verify(noExp)
	assert.Error(t, err)

	other, err := NewVerifier("other-secret")
	require.NoError(t, err)
	forged, err := other.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = v.Verify("not-a-token")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"header", "Bearer abc.def", "", "abc.def"},
		{"lowercase scheme", "bearer abc", "", "abc"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", ""},
		{"query fallback", "", "?access_token=xyz", "xyz"},
		{"header wins", "Bearer h", "?access_token=q", "h"},
		{"missing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws/reports/progress"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(r))
		})
	}
}

func TestUserContext(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))

	ctx := WithUser(context.Background(), &User{ID: "u-1"})
	require.NotNil(t, UserFromContext(ctx))
	assert.Equal(t, "u-1", UserFromContext(ctx).ID)
}
