package database

import (
	"errors"
	"fmt"

	"slidecast/pkg/models"

	"github.com/mattn/go-sqlite3"
)

// Containers group media for the library view. Whether the backing table is
// the flat "folders" variant or the hierarchical "categories" variant is
// decided once at startup; all queries here go through the chosen table.

// CreateContainer inserts a new folder/category and returns its ID.
// parentID is only honored by the categories variant.
func (db *Database) CreateContainer(name string, parentID int) (int, error) {
	var result interface {
		LastInsertId() (int64, error)
	}
	var err error

	if db.containerTable == "categories" {
		result, err = db.conn.Exec(`INSERT INTO categories (name, parent_id) VALUES (?, ?)`,
			name, nullableInt(parentID))
	} else {
		result, err = db.conn.Exec(`INSERT INTO folders (name) VALUES (?)`, name)
	}

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("container name %q: %w", name, ErrConflict)
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	return int(id), err
}

// GetAllContainers returns every folder/category ordered by name.
func (db *Database) GetAllContainers() ([]models.Folder, error) {
	var query string
	if db.containerTable == "categories" {
		query = `SELECT id, name, COALESCE(parent_id, 0) FROM categories ORDER BY name`
	} else {
		query = `SELECT id, name, 0 FROM folders ORDER BY name`
	}

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var containers []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID); err != nil {
			return nil, err
		}
		containers = append(containers, f)
	}
	return containers, rows.Err()
}

// ContainerExists reports whether a folder/category with the ID exists.
func (db *Database) ContainerExists(id int) (bool, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, db.containerTable)
	if err := db.conn.QueryRow(query, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
