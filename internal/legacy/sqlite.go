// Package legacy reads the v1 single-table SQLite schema: integer
// auto-increment track ids with audio and artwork payloads stored
// inline. It is consumed exactly once, by the migration adapter.
package legacy

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/polyplayapp/polyplay/internal/models"
)

// Store represents the legacy SQLite database.
type Store struct {
	db *sql.DB
}

// Exists reports whether a legacy database file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Open opens a legacy database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the legacy schema. Only used to build fixtures;
// production code treats the legacy store as read-only.
func (s *Store) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		sub TEXT,
		aura INTEGER DEFAULT 0,
		audio BLOB,
		art BLOB,
		art_mime TEXT,
		art_video BLOB,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create legacy schema: %w", err)
	}
	return nil
}

// InsertTrack appends a legacy row. Fixture helper, see Initialize.
func (s *Store) InsertTrack(t *models.LegacyTrack) error {
	_, err := s.db.Exec(`
		INSERT INTO tracks (title, sub, aura, audio, art, art_mime, art_video, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Sub, t.Aura, t.Audio, t.Art, t.ArtMime, t.ArtVideo, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert legacy track: %w", err)
	}
	return nil
}

// Tracks returns every legacy row in ascending creation order.
func (s *Store) Tracks() ([]*models.LegacyTrack, error) {
	rows, err := s.db.Query(`
		SELECT id, title, COALESCE(sub, ''), COALESCE(aura, 0),
		       audio, art, COALESCE(art_mime, ''), art_video, created_at
		FROM tracks
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.LegacyTrack
	for rows.Next() {
		t := &models.LegacyTrack{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Sub, &t.Aura,
			&t.Audio, &t.Art, &t.ArtMime, &t.ArtVideo, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan legacy track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
