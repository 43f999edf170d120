package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Sentinel errors returned by store operations. Handlers map these to the
// appropriate HTTP status codes.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// DefaultPlaylistName is the playlist materialized when none is active.
const DefaultPlaylistName = "Default"

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// containerTable is either "folders" or "categories", chosen at startup.
	containerTable string

	// Prepared statements for better performance
	getMediaByIDStmt  *sql.Stmt
	mediaExistsStmt   *sql.Stmt
	removeMediaStmt   *sql.Stmt
	getPlaylistStmt   *sql.Stmt
	getItemsStmt      *sql.Stmt
	appendItemStmt    *sql.Stmt
	getSettingStmt    *sql.Stmt
	upsertSettingStmt *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath, containerTable string) (*Database, error) {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if containerTable != "folders" && containerTable != "categories" {
		return nil, fmt.Errorf("unsupported container table: %s", containerTable)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;", // Enable foreign key constraints
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:           conn,
		logger:         logger,
		containerTable: containerTable,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	// Create media table
	mediaTable := `
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		path TEXT NOT NULL UNIQUE,
		mime TEXT NOT NULL,
		duration_s INTEGER,
		width INTEGER,
		height INTEGER,
		folder_id INTEGER,
		uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// Create playlists table
	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		is_active BOOLEAN DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// Create playlist_items table. media_id is intentionally NOT a foreign
	// key: items referencing deleted media stay behind and are skipped by
	// the feed, tolerating out-of-order deletions.
	playlistItemsTable := `
	CREATE TABLE IF NOT EXISTS playlist_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		playlist_id INTEGER NOT NULL,
		media_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		duration_override_s INTEGER,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE
	);`

	// Create settings table
	settingsTable := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);`

	// Tags are shared labels; the join table ties them to media and follows
	// media deletions via the cascade.
	tagsTable := `
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);`

	mediaTagsTable := `
	CREATE TABLE IF NOT EXISTS media_tags (
		media_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (media_id, tag_id),
		FOREIGN KEY (media_id) REFERENCES media(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);`

	// Container table for grouping media; schema depends on the configured variant
	var containerTable string
	if db.containerTable == "categories" {
		containerTable = `
		CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			parent_id INTEGER
		);`
	} else {
		containerTable = `
		CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`
	}

	// Create indices for better performance
	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_media_mime ON media(mime);",
		"CREATE INDEX IF NOT EXISTS idx_media_folder ON media(folder_id);",
		"CREATE INDEX IF NOT EXISTS idx_media_path ON media(path);",
		"CREATE INDEX IF NOT EXISTS idx_playlists_active ON playlists(is_active);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_items_playlist ON playlist_items(playlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_items_position ON playlist_items(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_media_tags_tag ON media_tags(tag_id);",
	}

	tables := []string{mediaTable, playlistsTable, playlistItemsTable, settingsTable, tagsTable, mediaTagsTable, containerTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	// Run migrations
	if err := db.runMigrations(); err != nil {
		return err
	}

	return nil
}

// runMigrations performs incremental schema updates in-place. Each migration
// should be idempotent and safe to re-run; keep them lightweight.
func (db *Database) runMigrations() error {
	// Migration 1: Add width/height columns to media if they don't exist
	for _, col := range []string{"width", "height"} {
		var columnExists bool
		err := db.conn.QueryRow(`
			SELECT COUNT(*) > 0
			FROM pragma_table_info('media')
			WHERE name = ?`, col).Scan(&columnExists)

		if err != nil {
			return err
		}

		if !columnExists {
			_, err = db.conn.Exec(fmt.Sprintf("ALTER TABLE media ADD COLUMN %s INTEGER", col))
			if err != nil {
				return err
			}
			db.logger.WithField("column", col).Info("Added column to media table")
		}
	}

	// Migration 2: Add duration_override_s to playlist_items if it doesn't exist
	var overrideExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('playlist_items')
		WHERE name = 'duration_override_s'`).Scan(&overrideExists)

	if err != nil {
		return err
	}

	if !overrideExists {
		_, err = db.conn.Exec("ALTER TABLE playlist_items ADD COLUMN duration_override_s INTEGER")
		if err != nil {
			return err
		}
		db.logger.Info("Added duration_override_s column to playlist_items table")
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.getMediaByIDStmt, err = db.conn.Prepare(`
		SELECT id, filename, path, mime, duration_s, width, height, folder_id, uploaded_at
		FROM media WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get media statement: %w", err)
	}

	db.mediaExistsStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM media WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare media exists statement: %w", err)
	}

	db.removeMediaStmt, err = db.conn.Prepare(`
		DELETE FROM media WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove media statement: %w", err)
	}

	db.getPlaylistStmt, err = db.conn.Prepare(`
		SELECT id, name, is_active, created_at FROM playlists WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get playlist statement: %w", err)
	}

	db.getItemsStmt, err = db.conn.Prepare(`
		SELECT id, playlist_id, media_id, position, duration_override_s
		FROM playlist_items WHERE playlist_id = ?
		ORDER BY position ASC`)
	if err != nil {
		return fmt.Errorf("failed to prepare get items statement: %w", err)
	}

	// Position is computed and inserted in one statement so concurrent
	// appends cannot observe the same MAX(position).
	db.appendItemStmt, err = db.conn.Prepare(`
		INSERT INTO playlist_items (playlist_id, media_id, position, duration_override_s)
		SELECT ?, ?, COALESCE(MAX(position), 0) + 1, ?
		FROM playlist_items WHERE playlist_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare append item statement: %w", err)
	}

	db.getSettingStmt, err = db.conn.Prepare(`
		SELECT value FROM settings WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get setting statement: %w", err)
	}

	db.upsertSettingStmt, err = db.conn.Prepare(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert setting statement: %w", err)
	}

	return nil
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	// Close prepared statements
	statements := []*sql.Stmt{
		db.getMediaByIDStmt,
		db.mediaExistsStmt,
		db.removeMediaStmt,
		db.getPlaylistStmt,
		db.getItemsStmt,
		db.appendItemStmt,
		db.getSettingStmt,
		db.upsertSettingStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	// Close database connection
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping verifies database connectivity for health checks.
func (db *Database) Ping() error {
	return db.conn.Ping()
}
