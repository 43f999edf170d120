package database

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Default values materialized on first start.
var defaultSettings = map[string]string{
	"app_name":              "Slidecast",
	"theme":                 "dark",
	"default_duration":      "10",
	"login_timeout_minutes": "30",
}

// GetSetting returns the raw string value for a key or ErrNotFound.
func (db *Database) GetSetting(key string) (string, error) {
	var value string
	err := db.getSettingStmt.QueryRow(key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting upserts a key/value pair.
func (db *Database) SetSetting(key, value string) error {
	_, err := db.upsertSettingStmt.Exec(key, value)
	if err != nil {
		db.logger.WithError(err).WithField("key", key).Error("Failed to upsert setting")
	}
	return err
}

// GetAllSettings returns every setting as a map.
func (db *Database) GetAllSettings() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// EnsureDefaultSettings inserts any missing base settings. Existing values
// are never overwritten.
func (db *Database) EnsureDefaultSettings() error {
	existing, err := db.GetAllSettings()
	if err != nil {
		return err
	}

	for key, value := range defaultSettings {
		if _, ok := existing[key]; ok {
			continue
		}
		if err := db.SetSetting(key, value); err != nil {
			return err
		}
		db.logger.WithField("key", key).Debug("Materialized default setting")
	}
	return nil
}

// GetIntSetting parses a setting as an integer, falling back to the given
// default when the key is absent or the value does not parse.
func (db *Database) GetIntSetting(key string, fallback int) int {
	raw, err := db.GetSetting(key)
	if err != nil {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
