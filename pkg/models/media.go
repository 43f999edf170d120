package models

import "time"

// Media represents an uploaded image or video in the catalog
type Media struct {
	ID         int       `json:"id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"-"` // don't expose file path to client
	Mime       string    `json:"mime"`
	DurationS  int       `json:"duration_s,omitempty"` // intrinsic duration for videos, seconds
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	FolderID   int       `json:"folder_id,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Playlist represents a named, orderable collection of media
type Playlist struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	ItemCount int       `json:"item_count"`
}

// PlaylistItem represents a single slot in a playlist. Position is 1-based
// and defines play order within the owning playlist.
type PlaylistItem struct {
	ID                int `json:"id"`
	PlaylistID        int `json:"playlist_id"`
	MediaID           int `json:"media_id"`
	Position          int `json:"position"`
	DurationOverrideS int `json:"duration_override_s,omitempty"` // 0 means "use default"
}

// Folder represents a flat media container used to group uploads
type Folder struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID int    `json:"parent_id,omitempty"` // only used by the category variant
}

// Setting is a single key/value configuration row
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
