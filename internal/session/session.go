package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// ErrNotSignedIn is returned when an operation needs a signed-in user.
var ErrNotSignedIn = errors.New("not signed in")

// Provider is the identity provider boundary. SignIn returns (nil, nil)
// when the user cancels or the popup is blocked; that is not an error.
type Provider interface {
	SignIn(ctx context.Context) (*models.User, error)
	SignOut(ctx context.Context) error
}

// Manager tracks the signed-in user. Safe for concurrent use.
type Manager struct {
	provider Provider
	logger   *zap.Logger

	mu   sync.RWMutex
	user *models.User
}

func NewManager(provider Provider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{provider: provider, logger: logger}
}

// SignIn asks the provider for a user. A cancelled sign-in leaves any current
// user untouched and returns (nil, nil).
func (m *Manager) SignIn(ctx context.Context) (*models.User, error) {
	user, err := m.provider.SignIn(ctx)
	if err != nil {
		m.logger.Warn("sign-in failed", zap.Error(err))
		return nil, err
	}
	if user == nil {
		m.logger.Debug("sign-in cancelled")
		return nil, nil
	}
	u := *user
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	m.logger.Info("user signed in", zap.String("uid", u.UID))
	out := u
	return &out, nil
}

// SignOut clears the user after the provider confirms.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("sign-out failed", zap.Error(err))
		return err
	}
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	m.logger.Info("user signed out")
	return nil
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// SignedIn reports whether a user is signed in.
func (m *Manager) SignedIn() bool {
	return m.User() != nil
}

// StaticProvider signs in a fixed profile, for local runs without an
// identity provider. A nil profile makes every sign-in a cancellation.
type StaticProvider struct {
	Profile *models.User
}

func (p StaticProvider) SignIn(ctx context.Context) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Profile == nil {
		return nil, nil
	}
	u := *p.Profile
	return &u, nil
}

func (p StaticProvider) SignOut(ctx context.Context) error {
	return ctx.Err()
}
