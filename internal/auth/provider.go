package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coinshelter/internal/log"
	"coinshelter/internal/records"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNotConfirmed       = errors.New("email address not confirmed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Session is the authenticated state handed out after sign in.
type Session struct {
	UserID string
	Email  string
	Name   string
	Token  string
}

// Listener is notified when the current session changes. A nil session
// means signed out.
type Listener func(*Session)

type Options struct {
	Secret              []byte
	TokenTTL            time.Duration
	RequireConfirmation bool
}

// Provider owns the current session and issues tokens against the user store.
type Provider struct {
	users  records.UserStore
	opts   Options
	logger *log.Logger

	mu        sync.RWMutex
	current   *Session
	listeners map[int]Listener
	nextID    int
}

func NewProvider(users records.UserStore, opts Options, logger *log.Logger) *Provider {
	if logger == nil {
		cfg := log.DefaultConfig()
		cfg.Component = log.ComponentAuth
		logger = log.New(cfg)
	}
	return &Provider{
		users:     users,
		opts:      opts,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Current returns the active session, or nil when signed out.
func (p *Provider) Current() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe registers a listener for session changes and returns an
// unsubscribe function.
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignUp registers a new account. When confirmation is required the
// account stays pending and no session is created.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (*Session, bool, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") || len(email) < 3 {
		return nil, false, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, false, ErrWeakPassword
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, false, fmt.Errorf("generate salt: %w", err)
	}

	user := records.User{
		Email:     email,
		Name:      name,
		Salt:      salt,
		Verifier:  DeriveVerifier([]byte(password), salt),
		Confirmed: !p.opts.RequireConfirmation,
	}

	created, err := p.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, records.ErrDuplicateEmail) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	p.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpSignUp,
		log.FieldUserID, created.ID,
		"confirmation_pending", p.opts.RequireConfirmation)

	if p.opts.RequireConfirmation {
		return nil, true, nil
	}

	session, err := p.establish(created)
	if err != nil {
		return nil, false, err
	}
	return session, false, nil
}

// SignIn verifies credentials and establishes the session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !VerifyPassword([]byte(password), user.Salt, user.Verifier) {
		return nil, ErrInvalidCredentials
	}
	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}

	session, err := p.establish(user)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "User signed in",
		log.FieldOperation, log.OpSignIn,
		log.FieldUserID, user.ID)
	return session, nil
}

// SignOut clears the session and notifies listeners.
func (p *Provider) SignOut() {
	p.mu.Lock()
	p.current = nil
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	for _, l := range listeners {
		l(nil)
	}
	p.logger.Info("User signed out", log.FieldOperation, log.OpSignOut)
}

// Confirm marks a pending account as confirmed.
func (p *Provider) Confirm(ctx context.Context, userID string) error {
	if err := p.users.ConfirmUser(ctx, userID); err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	return nil
}

// UserIDFromToken validates a bearer token and returns the user it belongs to.
func (p *Provider) UserIDFromToken(token string) (string, error) {
	return GetUserIDFromToken(token, p.opts.Secret)
}

func (p *Provider) establish(user records.User) (*Session, error) {
	token, err := GenerateToken(user.ID, p.opts.Secret, p.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	session := &Session{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Token:  token,
	}

	p.mu.Lock()
	p.current = session
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	for _, l := range listeners {
		l(session)
	}
	return session, nil
}

// snapshotListeners must be called with mu held.
func (p *Provider) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		out = append(out, l)
	}
	return out
}
