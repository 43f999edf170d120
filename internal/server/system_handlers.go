package server

import (
	"net/http"
	"os"
	"time"

	"slidecast/internal/sysinfo"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Storage   string                 `json:"storage"`
	Sessions  int                    `json:"activeSessions"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (ss *SignageServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Storage:   "ok",
		Details:   make(map[string]interface{}),
	}

	if err := ss.db.Ping(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	}

	if _, err := os.Stat(ss.config.Media.LibraryPath); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	if ss.authService.IsEnabled() {
		health.Sessions = ss.authService.GetSessionManager().ActiveSessionCount()
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	ss.respondJSON(w, health)
}

// handleSystemInfo returns host resource usage for the admin dashboard.
func (ss *SignageServer) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	info := sysinfo.Collect(ss.config.Media.LibraryPath)
	ss.respondJSON(w, map[string]interface{}{"ok": true, "system": info})
}

// ConfigResponse represents the public configuration sent to the frontend
type ConfigResponse struct {
	AuthEnabled bool     `json:"auth_enabled"`
	MaxUploadMB int64    `json:"max_upload_mb"`
	AllowedMime []string `json:"allowed_mime_prefixes"`
	TunnelURL   string   `json:"tunnel_url,omitempty"`
}

// handleGetConfig returns public configuration settings for the frontend
func (ss *SignageServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	response := ConfigResponse{
		AuthEnabled: ss.config.Auth.Enabled,
		MaxUploadMB: ss.config.Media.MaxUploadMB,
		AllowedMime: ss.config.Media.AllowedPrefixes,
		TunnelURL:   ss.tunnelService.GetPublicURL(),
	}

	ss.respondJSON(w, response)
}
