package server

import (
	"net/http"
	"path/filepath"

	"slidecast/internal/feed"
)

// handleHome serves the admin SPA index from the configured static dir.
func (ss *SignageServer) handleHome(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(ss.config.Server.StaticDir, "index.html"))
}

// compiledFeed returns the current feed and its fingerprint, consulting the
// short-lived cache first so polling players don't hit the database on
// every request.
func (ss *SignageServer) compiledFeed() ([]feed.Item, string, error) {
	if items, fingerprint, ok := ss.feedCache.GetFeed(); ok {
		return items, fingerprint, nil
	}

	items, err := ss.compiler.Compile()
	if err != nil {
		return nil, "", err
	}

	fingerprint := feed.Fingerprint(items)
	ss.feedCache.SetFeed(items, fingerprint)
	return items, fingerprint, nil
}

// handleGetFeed returns the compiled feed for the active playlist. The feed
// fingerprint doubles as an ETag so players polling frequently get 304s
// until content actually changes.
func (ss *SignageServer) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	items, fingerprint, err := ss.compiledFeed()
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error compiling feed", err)
		return
	}

	etag := `"` + fingerprint + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	ss.respondJSON(w, map[string]interface{}{
		"ok":          true,
		"fingerprint": fingerprint,
		"feed":        items,
	})
}

// handleGetActivePlaylist returns the active playlist and its raw items,
// creating and activating the default playlist when none is active.
func (ss *SignageServer) handleGetActivePlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ss.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	playlist, err := ss.db.GetOrCreateDefaultPlaylist()
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error resolving active playlist", err)
		return
	}

	items, err := ss.db.GetPlaylistItems(playlist.ID)
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist items", err)
		return
	}

	ss.respondJSON(w, map[string]interface{}{
		"ok":       true,
		"playlist": playlist,
		"items":    items,
	})
}
