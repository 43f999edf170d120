package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"slidecast/internal/database"
)

// handleGetMedia returns the media catalog, optionally filtered by folder
// (GET ?folder=N).
func (ss *SignageServer) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	folderID := 0
	if raw := r.URL.Query().Get("folder"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			ss.respondWithValidationError(w, r, []ValidationError{{
				Field:   "folder",
				Message: "folder must be a positive integer",
				Code:    "INVALID_FOLDER_FILTER",
			}})
			return
		}
		folderID = id
	}

	items, err := ss.db.GetAllMedia(folderID)
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving media", err)
		return
	}

	ss.respondJSON(w, map[string]interface{}{"ok": true, "media": items})
}

// handleMediaSubroutes routes /api/media/{id}[/assign|/tags...].
func (ss *SignageServer) handleMediaSubroutes(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// pathParts: ["api", "media", "{id}", ...]

	mediaID, vErr := ss.validatePathID(pathParts, 2, "media_id")
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
		ss.deleteMedia(w, r, mediaID)
	case action == "assign" && r.Method == http.MethodPost:
		ss.assignMediaFolder(w, r, mediaID)
	case action == "tags":
		ss.handleMediaTags(w, r, mediaID, pathParts[4:])
	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleMediaTags dispatches /api/media/{id}/tags (GET list, POST add),
// /api/media/{id}/tags/set (POST replace) and /api/media/{id}/tags/{name}
// (DELETE detach).
func (ss *SignageServer) handleMediaTags(w http.ResponseWriter, r *http.Request, mediaID int, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		tags, err := ss.db.GetMediaTags(mediaID)
		if err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving tags", err)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		ss.respondJSON(w, map[string]interface{}{"ok": true, "tags": tags})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var req struct {
			Add []string `json:"add"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		if err := ss.db.AddMediaTags(mediaID, req.Add); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				ss.respondWithError(w, r, http.StatusNotFound, "Media not found", err)
				return
			}
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error adding tags", err)
			return
		}
		ss.respondOK(w, nil)

	case len(rest) == 1 && rest[0] == "set" && r.Method == http.MethodPost:
		var req struct {
			Tags []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		if err := ss.db.SetMediaTags(mediaID, req.Tags); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				ss.respondWithError(w, r, http.StatusNotFound, "Media not found", err)
				return
			}
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error setting tags", err)
			return
		}
		ss.respondOK(w, nil)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := ss.db.RemoveMediaTag(mediaID, rest[0]); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				ss.respondWithError(w, r, http.StatusNotFound, "Tag not found on media", err)
				return
			}
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error removing tag", err)
			return
		}
		ss.respondOK(w, nil)

	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleListTags returns every known tag name (GET /api/tags).
func (ss *SignageServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	tags, err := ss.db.ListAllTags()
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving tags", err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	ss.respondJSON(w, map[string]interface{}{"ok": true, "tags": tags})
}

// deleteMedia removes a media row and its file from disk. Playlist items
// that referenced it become dangling and are dropped by the feed compiler.
func (ss *SignageServer) deleteMedia(w http.ResponseWriter, r *http.Request, mediaID int) {
	m, err := ss.db.GetMediaByID(mediaID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Media not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving media", err)
		return
	}

	if err := ss.db.DeleteMedia(mediaID); err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error deleting media", err)
		return
	}

	if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
		ss.logger.WithError(err).WithField("file_path", m.Path).Warn("Could not remove media file from disk")
	}
	ss.thumbs.Remove(mediaID)

	ss.feedCache.Invalidate()
	ss.respondOK(w, nil)
}

// assignMediaFolder moves media into a folder (POST json folder_id, 0 clears).
func (ss *SignageServer) assignMediaFolder(w http.ResponseWriter, r *http.Request, mediaID int) {
	var req struct {
		FolderID int `json:"folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.FolderID != 0 {
		exists, err := ss.db.ContainerExists(req.FolderID)
		if err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error checking folder", err)
			return
		}
		if !exists {
			ss.respondWithError(w, r, http.StatusNotFound, "Folder not found", nil)
			return
		}
	}

	if err := ss.db.AssignMediaContainer(mediaID, req.FolderID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ss.respondWithError(w, r, http.StatusNotFound, "Media not found", err)
			return
		}
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error assigning media folder", err)
		return
	}

	ss.respondOK(w, nil)
}

// handleRawMedia serves the original media file by ID with Range support,
// so video elements can seek.
func (ss *SignageServer) handleRawMedia(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// pathParts: ["media", "raw", "{id}"]

	mediaID, vErr := ss.validatePathID(pathParts, 2, "media_id")
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	m, err := ss.db.GetMediaByID(mediaID)
	if err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "Media not found", err)
		return
	}

	w.Header().Set("Content-Type", m.Mime)
	http.ServeFile(w, r, m.Path)
}

// handleMediaThumb serves (generating on first request) a JPEG thumbnail.
func (ss *SignageServer) handleMediaThumb(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// pathParts: ["media", "thumb", "{id}"]

	mediaID, vErr := ss.validatePathID(pathParts, 2, "media_id")
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	m, err := ss.db.GetMediaByID(mediaID)
	if err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "Media not found", err)
		return
	}

	thumbPath, err := ss.thumbs.Ensure(m)
	if err != nil {
		ss.logger.WithError(err).WithField("media_id", mediaID).Debug("Thumbnail unavailable, serving original")
		w.Header().Set("Content-Type", m.Mime)
		http.ServeFile(w, r, m.Path)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, thumbPath)
}

// handleFolders lists (GET) or creates (POST json name, parent_id) media folders.
func (ss *SignageServer) handleFolders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		folders, err := ss.db.GetAllContainers()
		if err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving folders", err)
			return
		}
		ss.respondJSON(w, map[string]interface{}{"ok": true, "folders": folders})

	case http.MethodPost:
		var req struct {
			Name     string `json:"name"`
			ParentID int    `json:"parent_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		name := sanitizeInput(req.Name)
		if name == "" {
			ss.respondWithValidationError(w, r, []ValidationError{{
				Field:   "name",
				Message: "Folder name is required",
				Code:    "MISSING_FOLDER_NAME",
			}})
			return
		}

		id, err := ss.db.CreateContainer(name, req.ParentID)
		if err != nil {
			if errors.Is(err, database.ErrConflict) {
				ss.respondWithError(w, r, http.StatusConflict, "A folder with that name already exists", err)
				return
			}
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error creating folder", err)
			return
		}

		ss.respondOK(w, map[string]interface{}{"id": id})

	default:
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}
