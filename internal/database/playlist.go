package database

import (
	"database/sql"
	"errors"
	"fmt"

	"slidecast/pkg/models"

	"github.com/mattn/go-sqlite3"
)

// GetOrCreateDefaultPlaylist returns the currently active playlist. If none
// is active, the playlist named "Default" is activated (creating it first
// when it does not exist). Always returns a playlist on success.
func (db *Database) GetOrCreateDefaultPlaylist() (*models.Playlist, error) {
	active, err := db.GetActivePlaylist()
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var pl models.Playlist
	err = db.conn.QueryRow(`
		SELECT id, name, is_active, created_at FROM playlists WHERE name = ?`,
		DefaultPlaylistName).Scan(&pl.ID, &pl.Name, &pl.IsActive, &pl.CreatedAt)

	switch {
	case err == sql.ErrNoRows:
		id, err := db.createPlaylistRow(DefaultPlaylistName, true)
		if err != nil {
			return nil, err
		}
		return db.GetPlaylist(id)

	case err != nil:
		return nil, err

	default:
		if err := db.SetActivePlaylist(pl.ID); err != nil {
			return nil, err
		}
		return db.GetPlaylist(pl.ID)
	}
}

// GetActivePlaylist returns the playlist flagged active, or ErrNotFound.
func (db *Database) GetActivePlaylist() (*models.Playlist, error) {
	var pl models.Playlist
	err := db.conn.QueryRow(`
		SELECT id, name, is_active, created_at FROM playlists WHERE is_active = TRUE LIMIT 1`).
		Scan(&pl.ID, &pl.Name, &pl.IsActive, &pl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("active playlist: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

// GetPlaylist returns a single playlist by ID or ErrNotFound.
func (db *Database) GetPlaylist(id int) (*models.Playlist, error) {
	var pl models.Playlist
	err := db.getPlaylistStmt.QueryRow(id).Scan(&pl.ID, &pl.Name, &pl.IsActive, &pl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	if err != nil {
		db.logger.WithError(err).WithField("playlist_id", id).Error("Failed to get playlist")
		return nil, err
	}
	return &pl, nil
}

// CreatePlaylist inserts a new inactive playlist and returns its ID.
// A duplicate name yields ErrConflict.
func (db *Database) CreatePlaylist(name string) (int, error) {
	return db.createPlaylistRow(name, false)
}

func (db *Database) createPlaylistRow(name string, active bool) (int, error) {
	result, err := db.conn.Exec(`
		INSERT INTO playlists (name, is_active)
		VALUES (?, ?)`, name, active)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("playlist name %q: %w", name, ErrConflict)
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	return int(id), err
}

// GetAllPlaylists returns all playlists along with derived item counts.
func (db *Database) GetAllPlaylists() ([]models.Playlist, error) {
	rows, err := db.conn.Query(`
		SELECT p.id, p.name, p.is_active, p.created_at,
			   COALESCE(COUNT(pi.id), 0) as item_count
		FROM playlists p
		LEFT JOIN playlist_items pi ON p.id = pi.playlist_id
		GROUP BY p.id, p.name, p.is_active, p.created_at
		ORDER BY p.created_at DESC`)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		err := rows.Scan(&playlist.ID, &playlist.Name, &playlist.IsActive,
			&playlist.CreatedAt, &playlist.ItemCount)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	return playlists, rows.Err()
}

// SetActivePlaylist flips the active flag to the given playlist inside a
// single transaction: every other playlist is deactivated in the same
// statement, so readers never observe two active playlists.
func (db *Database) SetActivePlaylist(id int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM playlists WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}

	if _, err := tx.Exec(`UPDATE playlists SET is_active = (id = ?)`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePlaylist removes a playlist; its items are cascaded away by the
// foreign key. The active flag is not transferred to another playlist.
func (db *Database) DeletePlaylist(id int) error {
	result, err := db.conn.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetPlaylistItems returns a playlist's items ordered by position.
func (db *Database) GetPlaylistItems(playlistID int) ([]models.PlaylistItem, error) {
	rows, err := db.getItemsStmt.Query(playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ReplaceItems atomically replaces the entire contents of a playlist with
// the given media IDs, assigning positions 1..N in input order. Media IDs
// that do not resolve in the catalog are skipped; positions stay dense over
// the survivors. durations, when non-nil, is matched positionally to the
// input order; a nil entry clears the override.
func (db *Database) ReplaceItems(playlistID int, mediaIDs []int, durations []*int) ([]models.PlaylistItem, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM playlists WHERE id = ?`, playlistID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("playlist %d: %w", playlistID, ErrNotFound)
	}

	if _, err := tx.Exec(`DELETE FROM playlist_items WHERE playlist_id = ?`, playlistID); err != nil {
		return nil, err
	}

	var items []models.PlaylistItem
	position := 0
	for idx, mediaID := range mediaIDs {
		var found int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM media WHERE id = ?`, mediaID).Scan(&found); err != nil {
			return nil, err
		}
		if found == 0 {
			// Stale reference, skip without disturbing survivor positions
			continue
		}

		var override interface{}
		overrideS := 0
		if idx < len(durations) && durations[idx] != nil {
			override = *durations[idx]
			overrideS = *durations[idx]
		}

		position++
		result, err := tx.Exec(`
			INSERT INTO playlist_items (playlist_id, media_id, position, duration_override_s)
			VALUES (?, ?, ?, ?)`, playlistID, mediaID, position, override)
		if err != nil {
			return nil, err
		}

		itemID, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}

		items = append(items, models.PlaylistItem{
			ID:                int(itemID),
			PlaylistID:        playlistID,
			MediaID:           mediaID,
			Position:          position,
			DurationOverrideS: overrideS,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

// AppendItem adds a media reference to the end of a playlist. The position
// is computed and written by a single INSERT..SELECT, so concurrent appends
// never collide on the same position. Media existence is not checked; the
// feed tolerates dangling references.
func (db *Database) AppendItem(playlistID, mediaID int, duration *int) (*models.PlaylistItem, error) {
	var exists int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM playlists WHERE id = ?`, playlistID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("playlist %d: %w", playlistID, ErrNotFound)
	}

	var override interface{}
	if duration != nil {
		override = *duration
	}

	result, err := db.appendItemStmt.Exec(playlistID, mediaID, override, playlistID)
	if err != nil {
		return nil, err
	}

	itemID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetPlaylistItem(int(itemID))
}

// GetPlaylistItem returns a single item by ID or ErrNotFound.
func (db *Database) GetPlaylistItem(itemID int) (*models.PlaylistItem, error) {
	var item models.PlaylistItem
	var override sql.NullInt64
	err := db.conn.QueryRow(`
		SELECT id, playlist_id, media_id, position, duration_override_s
		FROM playlist_items WHERE id = ?`, itemID).
		Scan(&item.ID, &item.PlaylistID, &item.MediaID, &item.Position, &override)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if override.Valid {
		item.DurationOverrideS = int(override.Int64)
	}
	return &item, nil
}

// Reorder assigns sequential positions starting at 1 to the playlist's items
// in the order given. IDs that do not belong to the playlist are ignored.
// Items omitted from the input keep their old positions; callers are
// expected to pass the full current ID set.
func (db *Database) Reorder(playlistID int, orderedItemIDs []int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	position := 0
	for _, itemID := range orderedItemIDs {
		result, err := tx.Exec(`
			UPDATE playlist_items SET position = ?
			WHERE id = ? AND playlist_id = ?`, position+1, itemID, playlistID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			position++
		}
	}

	return tx.Commit()
}

// RemoveItem deletes a playlist item. Remaining positions are not
// renumbered; density is restored by the next Reorder or ReplaceItems.
func (db *Database) RemoveItem(itemID int) error {
	result, err := db.conn.Exec(`DELETE FROM playlist_items WHERE id = ?`, itemID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("playlist item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

// SetItemDuration sets or clears (nil) an item's duration override.
func (db *Database) SetItemDuration(itemID int, duration *int) error {
	var override interface{}
	if duration != nil {
		override = *duration
	}

	result, err := db.conn.Exec(`
		UPDATE playlist_items SET duration_override_s = ? WHERE id = ?`, override, itemID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("playlist item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

// scanItemRows scans playlist item result sets into a slice. Callers must
// have already deferred rows.Close().
func scanItemRows(rows *sql.Rows) ([]models.PlaylistItem, error) {
	var items []models.PlaylistItem
	for rows.Next() {
		var item models.PlaylistItem
		var override sql.NullInt64

		if err := rows.Scan(&item.ID, &item.PlaylistID, &item.MediaID,
			&item.Position, &override); err != nil {
			return nil, err
		}

		if override.Valid {
			item.DurationOverrideS = int(override.Int64)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
