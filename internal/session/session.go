// Package session manages sign-in state: persisted credentials, the seeded
// profile query, and the teardown that runs on logout or a rejected token.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/logging"
	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/validate"
)

// ErrNotSignedIn is returned when a command needs a session and none is stored.
var ErrNotSignedIn = errors.New("session: not signed in")

// Store is the persisted session.
type Store interface {
	Token() (string, error)
	User() (api.User, bool, error)
	SaveSession(token string, u api.User) error
	SaveUser(u api.User) error
	ClearCredentials() error
}

// Manager ties the API client, the query cache and the store together.
type Manager struct {
	api    *api.Client
	cache  *query.Client
	store  Store
	logger *log.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager and registers the cache teardown for rejected
// tokens. The API client clears credentials itself before calling it.
func New(client *api.Client, cache *query.Client, store Store, opts ...Option) *Manager {
	m := &Manager{api: client, cache: cache, store: store}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Discard("session")
	}
	client.OnUnauthorized(func() {
		m.logger.Info("session rejected by server, clearing cache")
		cache.Clear()
	})
	return m
}

// SignedIn reports whether a token is stored.
func (m *Manager) SignedIn() bool {
	tok, err := m.store.Token()
	return err == nil && tok != ""
}

// Restore seeds the profile query from the stored user so the first
// render needs no request. Returns false when signed out.
func (m *Manager) Restore() (api.User, bool, error) {
	if !m.SignedIn() {
		return api.User{}, false, nil
	}
	u, found, err := m.store.User()
	if err != nil {
		return api.User{}, false, fmt.Errorf("session: restoring: %w", err)
	}
	if found {
		m.cache.SetEntry(portal.ProfileKey(), u)
	}
	return u, true, nil
}

// Login signs in with an email or NIM, persists the session and seeds the
// profile query. Anything cached for a previous session is dropped first.
func (m *Manager) Login(ctx context.Context, identifier, password string) (api.User, error) {
	identifier = strings.TrimSpace(identifier)
	if err := validate.Struct(validate.Login{Identifier: identifier, Password: password}); err != nil {
		return api.User{}, err
	}
	sess, err := m.api.Login(ctx, identifier, password)
	if err != nil {
		return api.User{}, err
	}
	if sess.Token == "" {
		return api.User{}, errors.New("session: login response has no token")
	}
	if err := m.store.SaveSession(sess.Token, sess.User); err != nil {
		return api.User{}, err
	}
	m.cache.Clear()
	m.cache.SetEntry(portal.ProfileKey(), sess.User)
	m.logger.Infof("signed in as user %d", sess.User.ID)
	return sess.User, nil
}

// Logout revokes the token on the server when possible, then tears the
// session down locally regardless.
func (m *Manager) Logout(ctx context.Context) error {
	if m.SignedIn() {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Warnf("server logout failed, clearing locally: %v", err)
		}
	}
	return m.Teardown()
}

// Teardown clears stored credentials and every cached query.
func (m *Manager) Teardown() error {
	err := m.store.ClearCredentials()
	m.cache.Clear()
	if err != nil {
		return fmt.Errorf("session: clearing credentials: %w", err)
	}
	return nil
}

// RequestOTP asks the server to send a reset code. Returns the server message.
func (m *Manager) RequestOTP(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if err := validate.Struct(validate.OTPRequest{Identifier: identifier}); err != nil {
		return "", err
	}
	return m.api.RequestOTP(ctx, identifier)
}

// ResetPassword sets a new password with the OTP. Returns the server message.
func (m *Manager) ResetPassword(ctx context.Context, form validate.ResetPassword) (string, error) {
	form.Identifier = strings.TrimSpace(form.Identifier)
	if err := validate.Struct(form); err != nil {
		return "", err
	}
	return m.api.ResetPassword(ctx, form.Identifier, form.OTP, form.Password)
}

// UpdateProfile runs the profile mutation and stores the merged user so the
// next start shows it too.
func (m *Manager) UpdateProfile(ctx context.Context, cat *portal.Catalog, edit portal.ProfileEdit) (api.User, error) {
	if _, err := cat.UpdateProfile().Exec(ctx, m.cache, edit); err != nil {
		return api.User{}, err
	}
	res, _ := query.Lookup[api.User](m.cache, portal.ProfileKey())
	if err := m.store.SaveUser(res.Data); err != nil {
		m.logger.Warnf("saving updated user: %v", err)
	}
	return res.Data, nil
}
