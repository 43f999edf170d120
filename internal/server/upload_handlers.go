package server

import (
	"io"
	"net/http"
	"os"
	"strings"

	"slidecast/internal/media"

	"github.com/sirupsen/logrus"
)

// handleUploadMedia accepts a multipart upload, stores the file in the
// media library and registers it in the catalog.
func (ss *SignageServer) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	maxSize := ss.config.Media.MaxUploadMB * 1024 * 1024 // Convert MB to bytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	safeFilename := media.SanitizeFilename(header.Filename)
	mimeType := media.DetectMime(safeFilename)
	if !ss.config.IsMimeAllowed(mimeType) {
		ss.respondWithError(w, r, http.StatusBadRequest,
			"Invalid file type. Allowed: "+strings.Join(ss.config.Media.AllowedPrefixes, ", "), nil)
		return
	}

	if err := os.MkdirAll(ss.config.Media.LibraryPath, 0755); err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Failed to create media directory", err)
		return
	}

	destPath, storedName := media.SecureUniquePath(ss.config.Media.LibraryPath, safeFilename)

	destFile, err := os.Create(destPath)
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Failed to create destination file", err)
		return
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		os.Remove(destPath) // Clean up on error
		ss.respondWithError(w, r, http.StatusInternalServerError, "Failed to save file", err)
		return
	}

	m, err := ss.inspector.InspectFile(destPath)
	if err != nil {
		os.Remove(destPath)
		ss.respondWithError(w, r, http.StatusBadRequest, "Uploaded file is not usable media", err)
		return
	}

	mediaID, err := ss.db.InsertMedia(m)
	if err != nil {
		os.Remove(destPath)
		ss.respondWithError(w, r, http.StatusInternalServerError, "Failed to register media", err)
		return
	}

	// Optional direct append to the active playlist
	if r.FormValue("append") == "true" {
		playlist, err := ss.db.GetOrCreateDefaultPlaylist()
		if err == nil {
			if _, err := ss.db.AppendItem(playlist.ID, mediaID, nil); err != nil {
				ss.logger.WithError(err).Warn("Could not append uploaded media to active playlist")
			} else {
				ss.feedCache.Invalidate()
			}
		}
	}

	ss.logger.WithFields(logrus.Fields{
		"media_id": mediaID,
		"filename": storedName,
		"mime":     m.Mime,
	}).Info("Media uploaded")

	ss.respondOK(w, map[string]interface{}{
		"id":       mediaID,
		"filename": storedName,
		"mime":     m.Mime,
	})
}
