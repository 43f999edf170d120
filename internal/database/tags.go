package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// ListAllTags returns every tag name sorted alphabetically.
func (db *Database) ListAllTags() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetMediaTags returns the tag names attached to one media item, sorted.
func (db *Database) GetMediaTags(mediaID int) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT t.name FROM tags t
		JOIN media_tags mt ON mt.tag_id = t.id
		WHERE mt.media_id = ?
		ORDER BY t.name ASC`, mediaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddMediaTags attaches tags to a media item, creating unknown tag names on
// the fly. Blank names are skipped; already-attached tags are left alone.
func (db *Database) AddMediaTags(mediaID int, names []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireMediaTx(tx, mediaID); err != nil {
		return err
	}
	if err := attachTagsTx(tx, mediaID, names); err != nil {
		return err
	}
	return tx.Commit()
}

// SetMediaTags replaces a media item's complete tag list.
func (db *Database) SetMediaTags(mediaID int, names []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireMediaTx(tx, mediaID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM media_tags WHERE media_id = ?`, mediaID); err != nil {
		return err
	}
	if err := attachTagsTx(tx, mediaID, names); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveMediaTag detaches one tag name from a media item. The tag row itself
// stays so it remains offered for other media. Returns ErrNotFound when the
// media does not carry the tag.
func (db *Database) RemoveMediaTag(mediaID int, name string) error {
	result, err := db.conn.Exec(`
		DELETE FROM media_tags
		WHERE media_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`,
		mediaID, strings.TrimSpace(name))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("tag %q on media %d: %w", name, mediaID, ErrNotFound)
	}
	return nil
}

func requireMediaTx(tx *sql.Tx, mediaID int) error {
	var found int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM media WHERE id = ?`, mediaID).Scan(&found); err != nil {
		return err
	}
	if found == 0 {
		return fmt.Errorf("media %d: %w", mediaID, ErrNotFound)
	}
	return nil
}

// attachTagsTx upserts tag rows for the normalized names and links them to
// the media item, ignoring duplicates.
func attachTagsTx(tx *sql.Tx, mediaID int, names []string) error {
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		if _, err := tx.Exec(`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO media_tags (media_id, tag_id)
			VALUES (?, (SELECT id FROM tags WHERE name = ?))`, mediaID, name); err != nil {
			return err
		}
	}
	return nil
}
