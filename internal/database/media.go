package database

import (
	"database/sql"
	"fmt"

	"slidecast/pkg/models"
)

// InsertMedia inserts a new media record or updates an existing one (matched
// by path) returning the media's database ID.
func (db *Database) InsertMedia(m models.Media) (int, error) {
	var existingID int
	err := db.conn.QueryRow("SELECT id FROM media WHERE path = ?", m.Path).Scan(&existingID)
	if err == nil {
		_, err = db.conn.Exec(`
			UPDATE media SET filename = ?, mime = ?, duration_s = ?, width = ?, height = ?
			WHERE id = ?`,
			m.Filename, m.Mime, nullableInt(m.DurationS), nullableInt(m.Width), nullableInt(m.Height),
			existingID)
		if err != nil {
			db.logger.WithError(err).WithField("media_id", existingID).Error("Failed to update existing media")
		}
		return existingID, err
	}

	result, err := db.conn.Exec(`
		INSERT INTO media (filename, path, mime, duration_s, width, height, folder_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Filename, m.Path, m.Mime, nullableInt(m.DurationS), nullableInt(m.Width),
		nullableInt(m.Height), nullableInt(m.FolderID))

	if err != nil {
		db.logger.WithError(err).WithField("path", m.Path).Error("Failed to insert new media")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		db.logger.WithError(err).Error("Failed to get last insert ID")
		return 0, err
	}

	return int(id), nil
}

// GetMediaByID returns a single media record by its ID.
func (db *Database) GetMediaByID(id int) (*models.Media, error) {
	var m models.Media
	var durationS, width, height, folderID sql.NullInt64

	err := db.getMediaByIDStmt.QueryRow(id).Scan(
		&m.ID, &m.Filename, &m.Path, &m.Mime,
		&durationS, &width, &height, &folderID, &m.UploadedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
		}
		db.logger.WithError(err).WithField("media_id", id).Error("Failed to get media by ID")
		return nil, err
	}

	m.DurationS = int(durationS.Int64)
	m.Width = int(width.Int64)
	m.Height = int(height.Int64)
	m.FolderID = int(folderID.Int64)
	return &m, nil
}

// GetAllMedia returns media records newest first, optionally filtered by
// container (folderID > 0).
func (db *Database) GetAllMedia(folderID int) ([]models.Media, error) {
	query := `
		SELECT id, filename, path, mime, duration_s, width, height, folder_id, uploaded_at
		FROM media`
	args := []interface{}{}
	if folderID > 0 {
		query += ` WHERE folder_id = ?`
		args = append(args, folderID)
	}
	query += ` ORDER BY id DESC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMediaRows(rows)
}

// AssignMediaContainer sets (or clears, folderID == 0) the container a media
// record belongs to.
func (db *Database) AssignMediaContainer(mediaID, folderID int) error {
	result, err := db.conn.Exec(`UPDATE media SET folder_id = ? WHERE id = ?`,
		nullableInt(folderID), mediaID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("media %d: %w", mediaID, ErrNotFound)
	}
	return nil
}

// DeleteMedia removes a media record by ID. Playlist items referencing it
// are left behind on purpose; the feed drops them at read time.
func (db *Database) DeleteMedia(id int) error {
	result, err := db.conn.Exec("DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return nil
}

// RemoveMediaByPath deletes a media row identified by its file path.
func (db *Database) RemoveMediaByPath(path string) error {
	_, err := db.removeMediaStmt.Exec(path)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to remove media by path")
	}
	return err
}

// MediaExists returns true if a media record exists with the given file path.
func (db *Database) MediaExists(path string) (bool, error) {
	var count int
	err := db.mediaExistsStmt.QueryRow(path).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("path", path).Error("Failed to check if media exists")
		return false, err
	}
	return count > 0, nil
}

// scanMediaRows scans standard media result sets into a slice of
// models.Media. Callers must have already deferred rows.Close().
func scanMediaRows(rows *sql.Rows) ([]models.Media, error) {
	var media []models.Media
	for rows.Next() {
		var m models.Media
		var durationS, width, height, folderID sql.NullInt64

		if err := rows.Scan(&m.ID, &m.Filename, &m.Path, &m.Mime,
			&durationS, &width, &height, &folderID, &m.UploadedAt); err != nil {
			return nil, err
		}

		m.DurationS = int(durationS.Int64)
		m.Width = int(width.Int64)
		m.Height = int(height.Int64)
		m.FolderID = int(folderID.Int64)
		media = append(media, m)
	}
	return media, rows.Err()
}

// nullableInt maps 0 to NULL so optional integer columns stay NULL instead
// of storing a meaningless zero.
func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
