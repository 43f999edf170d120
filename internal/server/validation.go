package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON writes v as a JSON response body.
func (ss *SignageServer) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ss.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondOK writes the success envelope, merging in any extra fields.
func (ss *SignageServer) respondOK(w http.ResponseWriter, extra map[string]interface{}) {
	response := map[string]interface{}{"ok": true}
	for k, v := range extra {
		response[k] = v
	}
	ss.respondJSON(w, response)
}

// respondWithValidationError sends a structured validation error response
func (ss *SignageServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	ss.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	result := ValidationResult{
		Valid:  false,
		Errors: errors,
	}

	ss.respondJSON(w, result)
}

// respondWithError sends a structured error response
func (ss *SignageServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ss.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"ok":    false,
		"error": message,
	}

	ss.respondJSON(w, response)
}

// validatePathID validates and parses a numeric ID from a URL path segment
func (ss *SignageServer) validatePathID(pathParts []string, index int, field string) (int, *ValidationError) {
	upper := strings.ToUpper(field)

	if len(pathParts) <= index || pathParts[index] == "" {
		return 0, &ValidationError{
			Field:   field,
			Message: field + " is required",
			Code:    "MISSING_" + upper,
		}
	}

	id, err := strconv.Atoi(pathParts[index])
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Message: field + " must be a valid integer",
			Code:    "INVALID_" + upper + "_FORMAT",
		}
	}

	if id <= 0 {
		return 0, &ValidationError{
			Field:   field,
			Message: field + " must be positive",
			Code:    "INVALID_" + upper + "_VALUE",
		}
	}

	return id, nil
}

// validatePlaylistName validates a playlist name
func (ss *SignageServer) validatePlaylistName(name string) *ValidationError {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name is required",
			Code:    "MISSING_PLAYLIST_NAME",
		}
	}

	if len(name) > 255 {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name too long (max 255 characters)",
			Code:    "PLAYLIST_NAME_TOO_LONG",
		}
	}

	if strings.Contains(name, "\x00") || strings.Contains(name, "\n") || strings.Contains(name, "\r") {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name contains invalid characters",
			Code:    "INVALID_PLAYLIST_NAME_CHARACTERS",
		}
	}

	return nil
}

// validateDuration validates a per-item duration override in seconds
func (ss *SignageServer) validateDuration(seconds int) *ValidationError {
	if seconds < 1 || seconds > 86400 {
		return &ValidationError{
			Field:   "duration",
			Message: "Duration must be between 1 and 86400 seconds",
			Code:    "INVALID_DURATION",
		}
	}
	return nil
}

// clientIP extracts the requesting client's address, honoring
// X-Forwarded-For when the server sits behind a reverse proxy.
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sanitizeInput sanitizes user input to prevent injection attacks
func sanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	return input
}
