package auth

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrNoSession is returned when nobody is signed in
var ErrNoSession = errors.New("no hay sesión activa")

// refreshMargin refreshes tokens slightly before they expire
const refreshMargin = 60 * time.Second

// Backend is the remote side of the session
type Backend interface {
	PasswordGrant(ctx context.Context, email, password string) (*Session, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
}

// Listener is told about every auth state change
type Listener func(event Event, session *Session)

// Coordinator owns the current session and notifies listeners of changes.
// ⭐ SSOT: the only holder of session state
type Coordinator struct {
	backend Backend
	now     func() time.Time
	log     zerolog.Logger

	// refresh collapses concurrent refreshes of one refresh token
	refresh singleflight.Group

	mu        sync.Mutex
	session   *Session
	listeners map[int]Listener
	nextID    int
}

// NewCoordinator creates a signed-out coordinator
func NewCoordinator(backend Backend, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		backend:   backend,
		now:       time.Now,
		log:       log.With().Str("component", "auth").Logger(),
		listeners: make(map[int]Listener),
	}
}

// SignIn authenticates and stores the session
func (c *Coordinator) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := c.backend.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.log.Info().Str("email", email).Msg("Signed in")
	c.emit(EventSignedIn, s)
	return s, nil
}

// Restore installs a previously persisted session without contacting the backend
func (c *Coordinator) Restore(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// GetSession returns the current session, refreshing it when the access
// token is about to expire. A failed refresh signs the user out.
func (c *Coordinator) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil, ErrNoSession
	}
	if !s.ExpiresWithin(c.now(), refreshMargin) {
		return s, nil
	}
	if s.RefreshToken == "" {
		c.clear()
		return nil, ErrNoSession
	}

	v, err, _ := c.refresh.Do(s.RefreshToken, func() (interface{}, error) {
		return c.refreshSession(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// refreshSession exchanges the refresh token of s. When another caller
// already rotated s, the current session is returned instead.
func (c *Coordinator) refreshSession(ctx context.Context, s *Session) (*Session, error) {
	c.mu.Lock()
	cur := c.session
	c.mu.Unlock()

	if cur == nil {
		return nil, ErrNoSession
	}
	if cur != s && !cur.ExpiresWithin(c.now(), refreshMargin) {
		return cur, nil
	}

	fresh, err := c.backend.RefreshGrant(ctx, s.RefreshToken)
	if err != nil {
		c.log.Warn().Err(err).Msg("Session refresh failed, signing out")
		c.clear()
		return nil, ErrNoSession
	}
	if fresh.User == nil {
		fresh.User = s.User
	}

	c.mu.Lock()
	c.session = fresh
	c.mu.Unlock()

	c.emit(EventTokenRefreshed, fresh)
	return fresh, nil
}

// SignOut revokes the session remotely and always clears it locally.
// The remote error, if any, is returned after local state is gone.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	var err error
	if s != nil && s.AccessToken != "" {
		if err = c.backend.Logout(ctx, s.AccessToken); err != nil {
			c.log.Warn().Err(err).Msg("Remote sign out failed")
		}
	}

	c.clear()
	return err
}

// CurrentUser returns the signed-in user or nil
func (c *Coordinator) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.User
}

// IsAuthenticated reports whether a session is held
func (c *Coordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// OnAuthStateChange registers fn and returns a function that removes it
func (c *Coordinator) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) clear() {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.mu.Unlock()

	if had {
		c.log.Info().Msg("Signed out")
		c.emit(EventSignedOut, nil)
	}
}

// emit calls listeners outside the lock, in registration order
func (c *Coordinator) emit(event Event, s *Session) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, s)
	}
}
