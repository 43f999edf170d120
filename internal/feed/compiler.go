package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"slidecast/pkg/models"

	"github.com/sirupsen/logrus"
)

// FallbackDuration is used when the default_duration setting is absent or
// does not parse.
const FallbackDuration = 10

// Item is a single player-ready entry in the compiled feed.
type Item struct {
	PlaylistItemID int    `json:"playlist_item_id"`
	MediaID        int    `json:"media_id"`
	Filename       string `json:"filename"`
	Type           string `json:"type"` // "video" or "image"
	Duration       int    `json:"duration"`
	URL            string `json:"url"`
	Thumb          string `json:"thumb"`
	Mime           string `json:"mime"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
}

// PlaylistSource yields the active playlist and its ordered items.
type PlaylistSource interface {
	GetOrCreateDefaultPlaylist() (*models.Playlist, error)
	GetPlaylistItems(playlistID int) ([]models.PlaylistItem, error)
}

// MediaCatalog resolves media references.
type MediaCatalog interface {
	GetMediaByID(id int) (*models.Media, error)
}

// SettingsProvider supplies integer settings with a fallback.
type SettingsProvider interface {
	GetIntSetting(key string, fallback int) int
}

// Compiler projects the active playlist into the ordered, resolved feed the
// player consumes. Items whose media no longer resolves, and media that is
// neither image nor video, are dropped rather than surfaced as errors.
type Compiler struct {
	playlists PlaylistSource
	catalog   MediaCatalog
	settings  SettingsProvider
	logger    *logrus.Logger
}

// NewCompiler creates a feed compiler over the given collaborators.
func NewCompiler(playlists PlaylistSource, catalog MediaCatalog, settings SettingsProvider, logger *logrus.Logger) *Compiler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Compiler{
		playlists: playlists,
		catalog:   catalog,
		settings:  settings,
		logger:    logger,
	}
}

// Compile resolves the active playlist into feed items in position order.
// An empty feed is a valid result, never an error.
func (c *Compiler) Compile() ([]Item, error) {
	active, err := c.playlists.GetOrCreateDefaultPlaylist()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active playlist: %w", err)
	}

	items, err := c.playlists.GetPlaylistItems(active.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist items: %w", err)
	}

	defaultDuration := c.settings.GetIntSetting("default_duration", FallbackDuration)
	if defaultDuration <= 0 {
		defaultDuration = FallbackDuration
	}

	feed := make([]Item, 0, len(items))
	for _, item := range items {
		media, err := c.catalog.GetMediaByID(item.MediaID)
		if err != nil {
			// Dangling reference from an out-of-order deletion; skip
			c.logger.WithFields(logrus.Fields{
				"playlist_item_id": item.ID,
				"media_id":         item.MediaID,
			}).Debug("Skipping item with unresolvable media")
			continue
		}

		mediaType := classify(media.Mime)
		if mediaType == "" {
			c.logger.WithFields(logrus.Fields{
				"media_id": media.ID,
				"mime":     media.Mime,
			}).Debug("Skipping media with unclassifiable MIME type")
			continue
		}

		duration := defaultDuration
		if item.DurationOverrideS > 0 {
			duration = item.DurationOverrideS
		}

		feed = append(feed, Item{
			PlaylistItemID: item.ID,
			MediaID:        media.ID,
			Filename:       media.Filename,
			Type:           mediaType,
			Duration:       duration,
			URL:            fmt.Sprintf("/media/raw/%d", media.ID),
			Thumb:          fmt.Sprintf("/media/thumb/%d", media.ID),
			Mime:           media.Mime,
			Width:          media.Width,
			Height:         media.Height,
		})
	}

	return feed, nil
}

// classify maps a MIME type to a player media type, or "" when the media
// cannot be played.
func classify(mime string) string {
	switch {
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "image/"):
		return "image"
	default:
		return ""
	}
}

// fingerprintEntry is the deterministic subset of a feed item hashed for
// change detection. Fields are kept in sorted key order so the serialized
// form is stable.
type fingerprintEntry struct {
	Duration int    `json:"duration"`
	MediaID  int    `json:"media_id"`
	Mime     string `json:"mime"`
	URL      string `json:"url"`
}

// Fingerprint computes a content digest over the feed. Identical feeds
// always hash identically; any change to an emitted item's media, duration,
// MIME type or URL changes the result. Callers compare it against a
// previously seen value to skip re-transmission.
func Fingerprint(feed []Item) string {
	entries := make([]fingerprintEntry, 0, len(feed))
	for _, item := range feed {
		entries = append(entries, fingerprintEntry{
			Duration: item.Duration,
			MediaID:  item.MediaID,
			Mime:     item.Mime,
			URL:      item.URL,
		})
	}

	serial, err := json.Marshal(entries)
	if err != nil {
		// Marshalling plain ints and strings cannot fail; keep the
		// signature simple and hash the error text if it somehow does.
		serial = []byte(err.Error())
	}

	digest := sha256.Sum256(serial)
	return hex.EncodeToString(digest[:])
}
