package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// handleSettings returns all settings (GET) or updates a batch (POST json
// key/value map). Numeric settings are validated; unknown keys are stored
// as-is so the frontend can keep its own preferences.
func (ss *SignageServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := ss.db.GetAllSettings()
		if err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving settings", err)
			return
		}
		ss.respondJSON(w, map[string]interface{}{"ok": true, "settings": settings})

	case http.MethodPost:
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		for _, key := range []string{"default_duration", "login_timeout_minutes"} {
			if raw, ok := req[key]; ok {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 {
					ss.respondWithValidationError(w, r, []ValidationError{{
						Field:   key,
						Message: key + " must be a positive integer",
						Code:    "INVALID_SETTING_VALUE",
					}})
					return
				}
			}
		}

		for key, value := range req {
			if err := ss.db.SetSetting(key, sanitizeInput(value)); err != nil {
				ss.respondWithError(w, r, http.StatusInternalServerError, "Error saving setting", err)
				return
			}
		}

		// default_duration feeds into compiled item durations
		if _, ok := req["default_duration"]; ok {
			ss.feedCache.Invalidate()
		}

		ss.respondOK(w, nil)

	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}
