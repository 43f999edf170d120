package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"slidecast/internal/auth"
)

type contextKey string

// SessionContextKey holds the authenticated session on the request context.
const SessionContextKey contextKey = "session"

// authMiddleware checks if the user is authenticated for protected routes
// and enforces role requirements for mutating endpoints.
func (ss *SignageServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth check if authentication is disabled
		if !ss.authService.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		// Player endpoints and auth/static assets don't require a session
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		sessionManager := ss.authService.GetSessionManager()
		session, valid := sessionManager.GetSessionFromRequest(r)
		if !valid {
			// Redirect to login page for browser requests
			if isBrowserRequest(r) {
				http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
				return
			}
			ss.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
			return
		}

		if !ss.roleAllows(session, r) {
			ss.respondWithError(w, r, http.StatusForbidden, "Insufficient permissions", nil)
			return
		}

		// Refresh session on each request
		ss.authService.RefreshSession(session.ID)

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// roleAllows applies the role model: admins can do everything, editors can
// manage content but not users, settings or network, viewers are read-only.
func (ss *SignageServer) roleAllows(session *auth.Session, r *http.Request) bool {
	path := r.URL.Path

	// Admin-only surfaces, regardless of method
	adminPaths := []string{"/api/auth/users", "/api/network/", "/api/network"}
	for _, p := range adminPaths {
		if strings.HasPrefix(path, p) {
			return ss.authService.HasRole(session, auth.RoleAdmin)
		}
	}

	// Settings reads are open to any session; writes are admin-only
	if strings.HasPrefix(path, "/api/settings") && r.Method != http.MethodGet {
		return ss.authService.HasRole(session, auth.RoleAdmin)
	}

	// Content mutations need editor rights
	if r.Method != http.MethodGet && strings.HasPrefix(path, "/api/") &&
		!strings.HasPrefix(path, "/api/auth/") {
		return ss.authService.HasRole(session, auth.RoleAdmin, auth.RoleEditor)
	}

	return true
}

// sessionFromContext returns the session stored by the auth middleware.
func sessionFromContext(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(SessionContextKey).(*auth.Session)
	return session
}

// isPublicPath checks if a path should be accessible without authentication.
// The feed and raw media stay public so display devices never log in.
func isPublicPath(path string) bool {
	publicPaths := []string{
		"/login",
		"/api/auth/login",
		"/api/auth/logout",
		"/api/feed",
		"/api/playlist/active",
		"/api/config",
		"/media/raw/",
		"/media/thumb/",
		"/static/",
		"/health",
	}

	for _, publicPath := range publicPaths {
		if strings.HasPrefix(path, publicPath) {
			return true
		}
	}

	return false
}

// isBrowserRequest checks if the request is from a browser (vs API client)
func isBrowserRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

// handleLogin serves the login page
func (ss *SignageServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		// Check if user is already logged in
		if ss.authService.IsEnabled() {
			sessionManager := ss.authService.GetSessionManager()
			if _, valid := sessionManager.GetSessionFromRequest(r); valid {
				http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
				return
			}
		}

		http.ServeFile(w, r, ss.config.Server.StaticDir+"/login.html")
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// handleAuthLogin handles login API requests
func (ss *SignageServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if credentials.Username == "" || credentials.Password == "" {
		ss.respondWithError(w, r, http.StatusBadRequest, "Username and password required", nil)
		return
	}

	ip := clientIP(r)
	session, err := ss.authService.Login(ip, credentials.Username, credentials.Password)
	if err != nil {
		ss.logger.WithError(err).WithField("username", credentials.Username).Warn("Failed login attempt")
		status := http.StatusUnauthorized
		message := "Invalid credentials"
		if errors.Is(err, auth.ErrTooManyAttempts) {
			status = http.StatusTooManyRequests
			message = "Too many failed attempts, try again later"
		}
		ss.respondWithError(w, r, status, message, nil)
		return
	}

	sessionManager := ss.authService.GetSessionManager()
	sessionManager.SetSessionCookie(w, session)

	ss.logger.WithField("username", credentials.Username).Info("User logged in successfully")

	ss.respondOK(w, map[string]interface{}{
		"username": session.Username,
		"role":     session.Role,
	})
}

// handleAuthLogout handles logout requests
func (ss *SignageServer) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	sessionManager := ss.authService.GetSessionManager()
	session, valid := sessionManager.GetSessionFromRequest(r)
	if valid {
		ss.authService.Logout(session.ID)
		ss.logger.WithField("username", session.Username).Info("User logged out")
	}

	sessionManager.ClearSessionCookie(w)
	ss.respondOK(w, nil)
}

// handleChangePassword lets an authenticated user change their own password.
func (ss *SignageServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	session := sessionFromContext(r)
	if session == nil {
		ss.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if len(req.NewPassword) < 8 {
		ss.respondWithValidationError(w, r, []ValidationError{{
			Field:   "new_password",
			Message: "Password must be at least 8 characters",
			Code:    "PASSWORD_TOO_SHORT",
		}})
		return
	}

	if err := ss.authService.ChangePassword(session.Username, req.OldPassword, req.NewPassword); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Could not change password", err)
		return
	}

	// All existing sessions were invalidated; issue a fresh cookie
	ss.authService.GetSessionManager().ClearSessionCookie(w)
	ss.respondOK(w, nil)
}

// handleUsers lists users (GET) or creates one (POST). Admin-only, enforced
// by the auth middleware.
func (ss *SignageServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	userStore := ss.authService.GetUserStore()

	switch r.Method {
	case http.MethodGet:
		users := userStore.ListUsers()
		ss.respondJSON(w, map[string]interface{}{"ok": true, "users": users})

	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		username := sanitizeInput(req.Username)
		if username == "" || len(req.Password) < 8 {
			ss.respondWithError(w, r, http.StatusBadRequest, "Username and a password of at least 8 characters are required", nil)
			return
		}

		if err := userStore.CreateUser(username, req.Password, req.Role); err != nil {
			ss.respondWithError(w, r, http.StatusConflict, "Could not create user", err)
			return
		}

		ss.logger.WithField("username", username).Info("User created")
		ss.respondOK(w, nil)

	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleDeleteUser removes a user (DELETE /api/auth/users/{username}).
func (ss *SignageServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// pathParts: ["api", "auth", "users", "{username}"]
	if len(pathParts) < 4 || pathParts[3] == "" {
		ss.respondWithError(w, r, http.StatusBadRequest, "Username is required", nil)
		return
	}
	username := pathParts[3]

	session := sessionFromContext(r)
	if session != nil && session.Username == username {
		ss.respondWithError(w, r, http.StatusBadRequest, "Cannot delete your own account", nil)
		return
	}

	if err := ss.authService.GetUserStore().DeleteUser(username); err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "User not found", err)
		return
	}

	ss.authService.GetSessionManager().DeleteUserSessions(username)
	ss.logger.WithField("username", username).Info("User deleted")
	ss.respondOK(w, nil)
}
