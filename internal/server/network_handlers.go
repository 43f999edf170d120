package server

import (
	"encoding/json"
	"net/http"
)

// handleAccessPoint returns (GET) or updates (POST json key/value map) the
// Wi-Fi access point settings. Admin-only, enforced by the auth middleware.
func (ss *SignageServer) handleAccessPoint(w http.ResponseWriter, r *http.Request) {
	if ss.apService == nil {
		ss.respondWithError(w, r, http.StatusNotImplemented, "Access point support is disabled", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ss.respondJSON(w, map[string]interface{}{"ok": true, "ap": ss.apService.Current()})

	case http.MethodPost:
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		if err := ss.apService.Update(req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}

		ss.respondOK(w, nil)

	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleAccessPointApply regenerates hostapd/dnsmasq configuration and
// restarts the underlying services (POST).
func (ss *SignageServer) handleAccessPointApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if ss.apService == nil {
		ss.respondWithError(w, r, http.StatusNotImplemented, "Access point support is disabled", nil)
		return
	}

	if err := ss.apService.RenderAndApply(); err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Could not apply access point configuration", err)
		return
	}

	ss.respondOK(w, nil)
}
