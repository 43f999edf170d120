package database

import (
	"errors"
	"path/filepath"
	"testing"

	"slidecast/pkg/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(dbPath, "folders")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestMedia(t *testing.T, db *Database, path string) int {
	t.Helper()

	id, err := db.InsertMedia(models.Media{
		Filename: filepath.Base(path),
		Path:     path,
		Mime:     "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Failed to insert test media: %v", err)
	}
	return id
}

func TestDefaultPlaylist(t *testing.T) {
	db := newTestDB(t)

	t.Run("CreatedOnFirstAccess", func(t *testing.T) {
		pl, err := db.GetOrCreateDefaultPlaylist()
		if err != nil {
			t.Fatalf("Failed to get default playlist: %v", err)
		}
		if pl.Name != DefaultPlaylistName {
			t.Errorf("Expected name %q, got %q", DefaultPlaylistName, pl.Name)
		}
		if !pl.IsActive {
			t.Error("Expected default playlist to be active")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		first, err := db.GetOrCreateDefaultPlaylist()
		if err != nil {
			t.Fatalf("Failed to get default playlist: %v", err)
		}
		second, err := db.GetOrCreateDefaultPlaylist()
		if err != nil {
			t.Fatalf("Failed to get default playlist again: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("Expected same playlist ID, got %d and %d", first.ID, second.ID)
		}
	})

	t.Run("ReactivatedWhenNoneActive", func(t *testing.T) {
		otherID, err := db.CreatePlaylist("Other")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}
		if err := db.SetActivePlaylist(otherID); err != nil {
			t.Fatalf("Failed to activate playlist: %v", err)
		}
		if err := db.DeletePlaylist(otherID); err != nil {
			t.Fatalf("Failed to delete active playlist: %v", err)
		}

		// No playlist is active now; resolution falls back to Default
		pl, err := db.GetOrCreateDefaultPlaylist()
		if err != nil {
			t.Fatalf("Failed to resolve playlist after deleting active: %v", err)
		}
		if pl.Name != DefaultPlaylistName {
			t.Errorf("Expected %q to take over, got %q", DefaultPlaylistName, pl.Name)
		}
		if !pl.IsActive {
			t.Error("Expected fallback playlist to be active")
		}
	})
}

func TestPlaylistCRUD(t *testing.T) {
	db := newTestDB(t)

	t.Run("CreateAndGet", func(t *testing.T) {
		id, err := db.CreatePlaylist("Lobby")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}
		pl, err := db.GetPlaylist(id)
		if err != nil {
			t.Fatalf("Failed to get playlist: %v", err)
		}
		if pl.Name != "Lobby" {
			t.Errorf("Expected name Lobby, got %q", pl.Name)
		}
		if pl.IsActive {
			t.Error("New playlist should not be active")
		}
	})

	t.Run("DuplicateNameConflicts", func(t *testing.T) {
		if _, err := db.CreatePlaylist("Entrance"); err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}
		_, err := db.CreatePlaylist("Entrance")
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected ErrConflict for duplicate name, got %v", err)
		}
	})

	t.Run("ActivationIsExclusive", func(t *testing.T) {
		id1, _ := db.CreatePlaylist("A")
		id2, _ := db.CreatePlaylist("B")

		if err := db.SetActivePlaylist(id1); err != nil {
			t.Fatalf("Failed to activate A: %v", err)
		}
		if err := db.SetActivePlaylist(id2); err != nil {
			t.Fatalf("Failed to activate B: %v", err)
		}

		active, err := db.GetActivePlaylist()
		if err != nil {
			t.Fatalf("Failed to get active playlist: %v", err)
		}
		if active.ID != id2 {
			t.Errorf("Expected playlist %d active, got %d", id2, active.ID)
		}

		playlists, err := db.GetAllPlaylists()
		if err != nil {
			t.Fatalf("Failed to list playlists: %v", err)
		}
		activeCount := 0
		for _, pl := range playlists {
			if pl.IsActive {
				activeCount++
			}
		}
		if activeCount != 1 {
			t.Errorf("Expected exactly 1 active playlist, got %d", activeCount)
		}
	})

	t.Run("ActivateMissingPlaylist", func(t *testing.T) {
		err := db.SetActivePlaylist(99999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteMissingPlaylist", func(t *testing.T) {
		err := db.DeletePlaylist(99999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteCascadesItems", func(t *testing.T) {
		id, _ := db.CreatePlaylist("Doomed")
		mediaID := insertTestMedia(t, db, "/test/doomed.jpg")
		item, err := db.AppendItem(id, mediaID, nil)
		if err != nil {
			t.Fatalf("Failed to append item: %v", err)
		}

		if err := db.DeletePlaylist(id); err != nil {
			t.Fatalf("Failed to delete playlist: %v", err)
		}

		_, err = db.GetPlaylistItem(item.ID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected item to cascade on playlist delete, got %v", err)
		}
	})
}

func TestReplaceItems(t *testing.T) {
	db := newTestDB(t)

	playlistID, err := db.CreatePlaylist("Replace")
	if err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}

	m1 := insertTestMedia(t, db, "/test/r1.jpg")
	m2 := insertTestMedia(t, db, "/test/r2.jpg")
	m3 := insertTestMedia(t, db, "/test/r3.jpg")

	t.Run("DensePositions", func(t *testing.T) {
		items, err := db.ReplaceItems(playlistID, []int{m2, m1, m3}, nil)
		if err != nil {
			t.Fatalf("Failed to replace items: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("Expected 3 items, got %d", len(items))
		}
		for i, item := range items {
			if item.Position != i+1 {
				t.Errorf("Expected position %d, got %d", i+1, item.Position)
			}
		}
		if items[0].MediaID != m2 || items[1].MediaID != m1 || items[2].MediaID != m3 {
			t.Error("Items not in input order")
		}
	})

	t.Run("SkipsMissingMedia", func(t *testing.T) {
		items, err := db.ReplaceItems(playlistID, []int{m1, 99999, m3}, nil)
		if err != nil {
			t.Fatalf("Failed to replace items: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 surviving items, got %d", len(items))
		}
		// Survivors close the gap left by the missing reference
		if items[0].MediaID != m1 || items[0].Position != 1 {
			t.Errorf("Expected media %d at position 1, got media %d at %d", m1, items[0].MediaID, items[0].Position)
		}
		if items[1].MediaID != m3 || items[1].Position != 2 {
			t.Errorf("Expected media %d at position 2, got media %d at %d", m3, items[1].MediaID, items[1].Position)
		}
	})

	t.Run("PositionalDurations", func(t *testing.T) {
		ten, five := 10, 5
		items, err := db.ReplaceItems(playlistID, []int{m1, 99999, m2}, []*int{&ten, &five, nil})
		if err != nil {
			t.Fatalf("Failed to replace items: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(items))
		}
		// Durations stay matched to their input slots, not to survivor order
		if items[0].DurationOverrideS != 10 {
			t.Errorf("Expected override 10, got %d", items[0].DurationOverrideS)
		}
		if items[1].DurationOverrideS != 0 {
			t.Errorf("Expected no override, got %d", items[1].DurationOverrideS)
		}
	})

	t.Run("EmptyListClears", func(t *testing.T) {
		items, err := db.ReplaceItems(playlistID, nil, nil)
		if err != nil {
			t.Fatalf("Failed to clear items: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("Expected empty playlist, got %d items", len(items))
		}
	})

	t.Run("MissingPlaylist", func(t *testing.T) {
		_, err := db.ReplaceItems(99999, []int{m1}, nil)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestAppendAndReorder(t *testing.T) {
	db := newTestDB(t)

	playlistID, err := db.CreatePlaylist("Order")
	if err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}

	m1 := insertTestMedia(t, db, "/test/o1.jpg")
	m2 := insertTestMedia(t, db, "/test/o2.jpg")
	m3 := insertTestMedia(t, db, "/test/o3.jpg")

	i1, err := db.AppendItem(playlistID, m1, nil)
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	i2, err := db.AppendItem(playlistID, m2, nil)
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	i3, err := db.AppendItem(playlistID, m3, nil)
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	t.Run("AppendAssignsNextPosition", func(t *testing.T) {
		if i1.Position != 1 || i2.Position != 2 || i3.Position != 3 {
			t.Errorf("Expected positions 1,2,3 got %d,%d,%d", i1.Position, i2.Position, i3.Position)
		}
	})

	t.Run("AppendToMissingPlaylist", func(t *testing.T) {
		_, err := db.AppendItem(99999, m1, nil)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FullReorder", func(t *testing.T) {
		if err := db.Reorder(playlistID, []int{i3.ID, i1.ID, i2.ID}); err != nil {
			t.Fatalf("Failed to reorder: %v", err)
		}

		items, err := db.GetPlaylistItems(playlistID)
		if err != nil {
			t.Fatalf("Failed to get items: %v", err)
		}
		if items[0].ID != i3.ID || items[1].ID != i1.ID || items[2].ID != i2.ID {
			t.Errorf("Unexpected order: %d, %d, %d", items[0].ID, items[1].ID, items[2].ID)
		}
	})

	t.Run("ForeignIDsIgnored", func(t *testing.T) {
		other, _ := db.CreatePlaylist("Order Other")
		foreign, err := db.AppendItem(other, m1, nil)
		if err != nil {
			t.Fatalf("Failed to append to other playlist: %v", err)
		}

		if err := db.Reorder(playlistID, []int{foreign.ID, i1.ID, i2.ID, i3.ID}); err != nil {
			t.Fatalf("Failed to reorder: %v", err)
		}

		// The foreign ID consumed no position slot
		items, err := db.GetPlaylistItems(playlistID)
		if err != nil {
			t.Fatalf("Failed to get items: %v", err)
		}
		for i, item := range items {
			if item.Position != i+1 {
				t.Errorf("Expected position %d, got %d", i+1, item.Position)
			}
		}
		if items[0].ID != i1.ID {
			t.Errorf("Expected item %d first, got %d", i1.ID, items[0].ID)
		}

		// And the foreign playlist's item was left untouched
		kept, err := db.GetPlaylistItem(foreign.ID)
		if err != nil {
			t.Fatalf("Failed to get foreign item: %v", err)
		}
		if kept.Position != 1 {
			t.Errorf("Foreign item position changed to %d", kept.Position)
		}
	})

	t.Run("PartialOrderKeepsOmittedPositions", func(t *testing.T) {
		if err := db.Reorder(playlistID, []int{i1.ID, i2.ID, i3.ID}); err != nil {
			t.Fatalf("Failed to reorder: %v", err)
		}

		// Only two of the three items are listed; the omitted one keeps
		// its old position even when a listed item now claims it.
		if err := db.Reorder(playlistID, []int{i3.ID, i1.ID}); err != nil {
			t.Fatalf("Failed to reorder: %v", err)
		}

		moved1, err := db.GetPlaylistItem(i3.ID)
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}
		moved2, err := db.GetPlaylistItem(i1.ID)
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}
		omitted, err := db.GetPlaylistItem(i2.ID)
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}

		if moved1.Position != 1 || moved2.Position != 2 {
			t.Errorf("Expected listed items at 1 and 2, got %d and %d", moved1.Position, moved2.Position)
		}
		if omitted.Position != 2 {
			t.Errorf("Expected omitted item to keep position 2, got %d", omitted.Position)
		}
	})

	t.Run("RemoveDoesNotRenumber", func(t *testing.T) {
		if err := db.Reorder(playlistID, []int{i1.ID, i2.ID, i3.ID}); err != nil {
			t.Fatalf("Failed to reorder: %v", err)
		}
		if err := db.RemoveItem(i2.ID); err != nil {
			t.Fatalf("Failed to remove item: %v", err)
		}

		items, err := db.GetPlaylistItems(playlistID)
		if err != nil {
			t.Fatalf("Failed to get items: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(items))
		}
		// Relative order preserved, but the gap at position 2 remains
		if items[0].Position != 1 || items[1].Position != 3 {
			t.Errorf("Expected positions 1,3 got %d,%d", items[0].Position, items[1].Position)
		}
	})

	t.Run("RemoveMissingItem", func(t *testing.T) {
		err := db.RemoveItem(99999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestItemDurations(t *testing.T) {
	db := newTestDB(t)

	playlistID, err := db.CreatePlaylist("Durations")
	if err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}
	mediaID := insertTestMedia(t, db, "/test/d1.jpg")

	item, err := db.AppendItem(playlistID, mediaID, nil)
	if err != nil {
		t.Fatalf("Failed to append item: %v", err)
	}
	if item.DurationOverrideS != 0 {
		t.Errorf("Expected no override on plain append, got %d", item.DurationOverrideS)
	}

	t.Run("SetOverride", func(t *testing.T) {
		seconds := 25
		if err := db.SetItemDuration(item.ID, &seconds); err != nil {
			t.Fatalf("Failed to set duration: %v", err)
		}
		got, err := db.GetPlaylistItem(item.ID)
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}
		if got.DurationOverrideS != 25 {
			t.Errorf("Expected override 25, got %d", got.DurationOverrideS)
		}
	})

	t.Run("ClearOverride", func(t *testing.T) {
		if err := db.SetItemDuration(item.ID, nil); err != nil {
			t.Fatalf("Failed to clear duration: %v", err)
		}
		got, err := db.GetPlaylistItem(item.ID)
		if err != nil {
			t.Fatalf("Failed to get item: %v", err)
		}
		if got.DurationOverrideS != 0 {
			t.Errorf("Expected cleared override, got %d", got.DurationOverrideS)
		}
	})

	t.Run("MissingItem", func(t *testing.T) {
		seconds := 5
		err := db.SetItemDuration(99999, &seconds)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AppendWithOverride", func(t *testing.T) {
		seconds := 42
		withDur, err := db.AppendItem(playlistID, mediaID, &seconds)
		if err != nil {
			t.Fatalf("Failed to append with duration: %v", err)
		}
		if withDur.DurationOverrideS != 42 {
			t.Errorf("Expected override 42, got %d", withDur.DurationOverrideS)
		}
	})
}
