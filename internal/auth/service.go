package auth

import (
	"errors"
	"fmt"
	"time"

	"slidecast/internal/config"
)

// ErrTooManyAttempts is returned by Login while the caller is locked out.
var ErrTooManyAttempts = errors.New("too many failed attempts")

// Service provides authentication functionality
type Service struct {
	config         *config.AuthConfig
	userStore      *UserStore
	sessionManager *SessionManager
	limiter        *LoginLimiter
	enabled        bool
}

// NewService creates a new authentication service
func NewService(config *config.AuthConfig) (*Service, error) {
	if !config.Enabled {
		return &Service{
			config:  config,
			enabled: false,
		}, nil
	}

	// Parse session duration
	duration, err := time.ParseDuration(config.SessionDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid session duration: %w", err)
	}

	// Create user store
	userStore, err := NewUserStore(config.UsersFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create user store: %w", err)
	}

	// Create session manager
	sessionManager := NewSessionManager(duration, config.SecureCookies)

	// Create login rate limiter
	limiter := NewLoginLimiter(config.MaxLoginFails, time.Duration(config.FailWindowMins)*time.Minute)

	return &Service{
		config:         config,
		userStore:      userStore,
		sessionManager: sessionManager,
		limiter:        limiter,
		enabled:        true,
	}, nil
}

// IsEnabled returns whether authentication is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Login attempts to authenticate a user and create a session. Failed
// attempts are counted per (ip, username); once the limit trips, further
// attempts fail fast until the window slides past.
func (s *Service) Login(ip, username, password string) (*Session, error) {
	if !s.enabled {
		return nil, fmt.Errorf("authentication is disabled")
	}

	if s.limiter.IsLocked(ip, username) {
		return nil, ErrTooManyAttempts
	}

	if !s.userStore.Authenticate(username, password) {
		s.limiter.RegisterFailure(ip, username)
		return nil, fmt.Errorf("invalid credentials")
	}

	s.limiter.Clear(ip, username)

	user := s.userStore.GetUser(username)
	session, err := s.sessionManager.CreateSession(username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession checks if a session ID is valid
func (s *Service) ValidateSession(sessionID string) (*Session, bool) {
	if !s.enabled {
		return nil, true // If auth is disabled, consider all sessions valid
	}

	return s.sessionManager.GetSession(sessionID)
}

// Logout invalidates a session
func (s *Service) Logout(sessionID string) {
	if !s.enabled {
		return
	}

	s.sessionManager.DeleteSession(sessionID)
}

// RefreshSession extends a session's expiration
func (s *Service) RefreshSession(sessionID string) bool {
	if !s.enabled {
		return true
	}

	return s.sessionManager.RefreshSession(sessionID)
}

// GetSessionManager returns the session manager (for middleware)
func (s *Service) GetSessionManager() *SessionManager {
	return s.sessionManager
}

// GetUserStore returns the user store (for admin user management)
func (s *Service) GetUserStore() *UserStore {
	return s.userStore
}

// ChangePassword updates a user's password and invalidates their sessions
func (s *Service) ChangePassword(username, oldPassword, newPassword string) error {
	if !s.enabled {
		return fmt.Errorf("authentication is disabled")
	}

	if newPassword == "" {
		return fmt.Errorf("new password cannot be empty")
	}

	if !s.userStore.Authenticate(username, oldPassword) {
		return fmt.Errorf("current password is incorrect")
	}

	if err := s.userStore.SetPassword(username, newPassword); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	s.sessionManager.DeleteUserSessions(username)
	return nil
}

// HasRole reports whether a session's role is one of the allowed roles.
// With auth disabled every role check passes.
func (s *Service) HasRole(session *Session, allowed ...string) bool {
	if !s.enabled {
		return true
	}
	if session == nil {
		return false
	}
	for _, role := range allowed {
		if session.Role == role {
			return true
		}
	}
	return false
}
