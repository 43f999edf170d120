package feed

import (
	"fmt"
	"testing"

	"slidecast/pkg/models"
)

type stubPlaylists struct {
	playlist models.Playlist
	items    []models.PlaylistItem
}

func (s *stubPlaylists) GetOrCreateDefaultPlaylist() (*models.Playlist, error) {
	return &s.playlist, nil
}

func (s *stubPlaylists) GetPlaylistItems(playlistID int) ([]models.PlaylistItem, error) {
	return s.items, nil
}

type stubCatalog struct {
	media map[int]models.Media
}

func (s *stubCatalog) GetMediaByID(id int) (*models.Media, error) {
	m, ok := s.media[id]
	if !ok {
		return nil, fmt.Errorf("media %d not found", id)
	}
	return &m, nil
}

type stubSettings struct {
	values map[string]int
}

func (s *stubSettings) GetIntSetting(key string, fallback int) int {
	if v, ok := s.values[key]; ok {
		return v
	}
	return fallback
}

func newTestCompiler(items []models.PlaylistItem, media map[int]models.Media, settings map[string]int) *Compiler {
	return NewCompiler(
		&stubPlaylists{playlist: models.Playlist{ID: 1, Name: "Default", IsActive: true}, items: items},
		&stubCatalog{media: media},
		&stubSettings{values: settings},
		nil,
	)
}

func TestCompile(t *testing.T) {
	media := map[int]models.Media{
		42: {ID: 42, Filename: "intro.mp4", Mime: "video/mp4", Width: 1920, Height: 1080},
		43: {ID: 43, Filename: "menu.jpg", Mime: "image/jpeg"},
	}

	t.Run("OrderAndDurations", func(t *testing.T) {
		items := []models.PlaylistItem{
			{ID: 1, PlaylistID: 1, MediaID: 42, Position: 1, DurationOverrideS: 10},
			{ID: 2, PlaylistID: 1, MediaID: 43, Position: 2, DurationOverrideS: 5},
		}

		compiler := newTestCompiler(items, media, nil)
		feed, err := compiler.Compile()
		if err != nil {
			t.Fatalf("Failed to compile feed: %v", err)
		}

		if len(feed) != 2 {
			t.Fatalf("Expected 2 feed items, got %d", len(feed))
		}
		if feed[0].MediaID != 42 || feed[0].Duration != 10 || feed[0].Type != "video" {
			t.Errorf("Unexpected first item: %+v", feed[0])
		}
		if feed[1].MediaID != 43 || feed[1].Duration != 5 || feed[1].Type != "image" {
			t.Errorf("Unexpected second item: %+v", feed[1])
		}
		if feed[0].URL != "/media/raw/42" || feed[0].Thumb != "/media/thumb/42" {
			t.Errorf("Unexpected URLs: %s %s", feed[0].URL, feed[0].Thumb)
		}
	})

	t.Run("DefaultDurationFromSettings", func(t *testing.T) {
		items := []models.PlaylistItem{
			{ID: 1, PlaylistID: 1, MediaID: 43, Position: 1},
		}

		compiler := newTestCompiler(items, media, map[string]int{"default_duration": 20})
		feed, err := compiler.Compile()
		if err != nil {
			t.Fatalf("Failed to compile feed: %v", err)
		}
		if feed[0].Duration != 20 {
			t.Errorf("Expected duration 20 from settings, got %d", feed[0].Duration)
		}
	})

	t.Run("FallbackDuration", func(t *testing.T) {
		items := []models.PlaylistItem{
			{ID: 1, PlaylistID: 1, MediaID: 43, Position: 1},
		}

		compiler := newTestCompiler(items, media, map[string]int{"default_duration": -3})
		feed, err := compiler.Compile()
		if err != nil {
			t.Fatalf("Failed to compile feed: %v", err)
		}
		if feed[0].Duration != FallbackDuration {
			t.Errorf("Expected fallback duration %d, got %d", FallbackDuration, feed[0].Duration)
		}
	})

	t.Run("SkipsDanglingReferences", func(t *testing.T) {
		items := []models.PlaylistItem{
			{ID: 1, PlaylistID: 1, MediaID: 42, Position: 1},
			{ID: 2, PlaylistID: 1, MediaID: 999, Position: 2},
			{ID: 3, PlaylistID: 1, MediaID: 43, Position: 3},
		}

		compiler := newTestCompiler(items, media, nil)
		feed, err := compiler.Compile()
		if err != nil {
			t.Fatalf("Failed to compile feed: %v", err)
		}
		if len(feed) != 2 {
			t.Fatalf("Expected dangling reference to be dropped, got %d items", len(feed))
		}
		if feed[0].MediaID != 42 || feed[1].MediaID != 43 {
			t.Errorf("Unexpected survivors: %d, %d", feed[0].MediaID, feed[1].MediaID)
		}
	})

	t.Run("SkipsUnclassifiableMime", func(t *testing.T) {
		withPDF := map[int]models.Media{
			42: media[42],
			50: {ID: 50, Filename: "doc.pdf", Mime: "application/pdf"},
		}
		items := []models.PlaylistItem{
			{ID: 1, PlaylistID: 1, MediaID: 50, Position: 1},
			{ID: 2, PlaylistID: 1, MediaID: 42, Position: 2},
		}

		compiler := newTestCompiler(items, withPDF, nil)
		feed, err := compiler.Compile()
		if err != nil {
			t.Fatalf("Failed to compile feed: %v", err)
		}
		if len(feed) != 1 || feed[0].MediaID != 42 {
			t.Errorf("Expected only the video to survive, got %+v", feed)
		}
	})

	t.Run("EmptyPlaylist", func(t *testing.T) {
		compiler := newTestCompiler(nil, media, nil)
		feed, err := compiler.Compile()
		if err != nil {
			t.Fatalf("Empty playlist should compile cleanly: %v", err)
		}
		if len(feed) != 0 {
			t.Errorf("Expected empty feed, got %d items", len(feed))
		}
	})
}

func TestFingerprint(t *testing.T) {
	base := []Item{
		{PlaylistItemID: 1, MediaID: 42, Duration: 10, URL: "/media/raw/42", Mime: "video/mp4"},
		{PlaylistItemID: 2, MediaID: 43, Duration: 5, URL: "/media/raw/43", Mime: "image/jpeg"},
	}

	t.Run("Deterministic", func(t *testing.T) {
		if Fingerprint(base) != Fingerprint(base) {
			t.Error("Expected identical feeds to hash identically")
		}
	})

	t.Run("SensitiveToDuration", func(t *testing.T) {
		changed := make([]Item, len(base))
		copy(changed, base)
		changed[0].Duration = 11

		if Fingerprint(base) == Fingerprint(changed) {
			t.Error("Expected duration change to alter fingerprint")
		}
	})

	t.Run("SensitiveToOrder", func(t *testing.T) {
		swapped := []Item{base[1], base[0]}
		if Fingerprint(base) == Fingerprint(swapped) {
			t.Error("Expected order change to alter fingerprint")
		}
	})

	t.Run("IgnoresPlaylistItemID", func(t *testing.T) {
		renumbered := make([]Item, len(base))
		copy(renumbered, base)
		renumbered[0].PlaylistItemID = 77

		if Fingerprint(base) != Fingerprint(renumbered) {
			t.Error("Item row IDs should not affect the fingerprint")
		}
	})

	t.Run("EmptyFeed", func(t *testing.T) {
		if Fingerprint(nil) == "" {
			t.Error("Expected a stable digest for the empty feed")
		}
		if Fingerprint(nil) != Fingerprint([]Item{}) {
			t.Error("Expected nil and empty feeds to hash identically")
		}
	})
}
