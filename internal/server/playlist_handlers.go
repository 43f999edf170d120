package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"slidecast/internal/database"
)

// handleSortPlaylist reorders the active playlist (POST json order:[item ids]).
// Item IDs not in the active playlist are ignored; omitted items keep their
// previous positions.
func (ss *SignageServer) handleSortPlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		Order []int `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	playlist, err := ss.db.GetOrCreateDefaultPlaylist()
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error resolving active playlist", err)
		return
	}

	if err := ss.db.Reorder(playlist.ID, req.Order); err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error reordering playlist", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondOK(w, nil)
}

// handleRemoveItem removes a single item from its playlist (POST json item_id).
// Remaining positions are not renumbered; order is preserved by relative value.
func (ss *SignageServer) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		ItemID int `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if err := ss.db.RemoveItem(req.ItemID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist item not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error removing playlist item", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondOK(w, nil)
}

// handleSetItemDuration sets or clears a per-item duration override
// (POST json item_id, duration). A null or absent duration reverts the item
// to the default duration setting.
func (ss *SignageServer) handleSetItemDuration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		ItemID   int  `json:"item_id"`
		Duration *int `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.Duration != nil {
		if vErr := ss.validateDuration(*req.Duration); vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
	}

	if err := ss.db.SetItemDuration(req.ItemID, req.Duration); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist item not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error updating item duration", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondOK(w, nil)
}

// handlePlaylists lists all playlists (GET) or creates one (POST json name).
func (ss *SignageServer) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playlists, err := ss.db.GetAllPlaylists()
		if err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlists", err)
			return
		}
		ss.respondJSON(w, map[string]interface{}{"ok": true, "playlists": playlists})

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		name := sanitizeInput(req.Name)
		if vErr := ss.validatePlaylistName(name); vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}

		id, err := ss.db.CreatePlaylist(name)
		if err != nil {
			if errors.Is(err, database.ErrConflict) {
				ss.respondWithError(w, r, http.StatusConflict, "A playlist with that name already exists", err)
				return
			}
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error creating playlist", err)
			return
		}

		ss.respondOK(w, map[string]interface{}{"id": id})

	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handlePlaylistSubroutes routes /api/playlists/{id}[/activate|/items|/append].
func (ss *SignageServer) handlePlaylistSubroutes(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// pathParts: ["api", "playlists", "{id}", ...]

	playlistID, vErr := ss.validatePathID(pathParts, 2, "playlist_id")
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	action := ""
	if len(pathParts) >= 4 {
		action = pathParts[3]
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		ss.deletePlaylist(w, r, playlistID)
	case action == "activate" && r.Method == http.MethodPost:
		ss.activatePlaylist(w, r, playlistID)
	case action == "items" && r.Method == http.MethodGet:
		ss.getPlaylistItems(w, r, playlistID)
	case action == "items" && r.Method == http.MethodPut:
		ss.replacePlaylistItems(w, r, playlistID)
	case action == "append" && r.Method == http.MethodPost:
		ss.appendPlaylistItem(w, r, playlistID)
	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

func (ss *SignageServer) deletePlaylist(w http.ResponseWriter, r *http.Request, playlistID int) {
	if err := ss.db.DeletePlaylist(playlistID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error deleting playlist", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondOK(w, nil)
}

func (ss *SignageServer) activatePlaylist(w http.ResponseWriter, r *http.Request, playlistID int) {
	if err := ss.db.SetActivePlaylist(playlistID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error activating playlist", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondOK(w, nil)
}

func (ss *SignageServer) getPlaylistItems(w http.ResponseWriter, r *http.Request, playlistID int) {
	if _, err := ss.db.GetPlaylist(playlistID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return
	}

	items, err := ss.db.GetPlaylistItems(playlistID)
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist items", err)
		return
	}

	ss.respondJSON(w, map[string]interface{}{"ok": true, "items": items})
}

// replacePlaylistItems swaps a playlist's entire contents atomically
// (PUT json media_ids, optional positional durations). Media IDs that no
// longer resolve are skipped; survivors are renumbered densely from 1.
func (ss *SignageServer) replacePlaylistItems(w http.ResponseWriter, r *http.Request, playlistID int) {
	var req struct {
		MediaIDs  []int  `json:"media_ids"`
		Durations []*int `json:"durations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if len(req.Durations) > 0 && len(req.Durations) != len(req.MediaIDs) {
		ss.respondWithValidationError(w, r, []ValidationError{{
			Field:   "durations",
			Message: "durations must match media_ids in length when provided",
			Code:    "DURATIONS_LENGTH_MISMATCH",
		}})
		return
	}

	items, err := ss.db.ReplaceItems(playlistID, req.MediaIDs, req.Durations)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error replacing playlist items", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondJSON(w, map[string]interface{}{"ok": true, "items": items})
}

// appendPlaylistItem adds one media entry to the end of a playlist
// (POST json media_id, optional duration).
func (ss *SignageServer) appendPlaylistItem(w http.ResponseWriter, r *http.Request, playlistID int) {
	var req struct {
		MediaID  int  `json:"media_id"`
		Duration *int `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.Duration != nil {
		if vErr := ss.validateDuration(*req.Duration); vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
	}

	item, err := ss.db.AppendItem(playlistID, req.MediaID, req.Duration)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Playlist or media not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error appending playlist item", err)
		return
	}

	ss.feedCache.Invalidate()
	ss.respondJSON(w, map[string]interface{}{"ok": true, "item": item})
}
