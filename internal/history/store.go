// Package history persists play events and favorites in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tessro/vibe/internal/core"
)

// ErrNotFound is returned when a favorite does not exist.
var ErrNotFound = errors.New("not found")

// Store is the play history and favorites database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// migrations. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const trackColumns = "track_id, track_source, track_title, track_artist, track_album, track_cover, track_preview, track_duration"

func trackArgs(t core.Track) []any {
	return []any{t.ID, string(t.Source), t.Title, t.Artist, t.Album, t.Cover, t.Preview, int64(t.Duration / time.Second)}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner, extra ...any) (core.Track, error) {
	var (
		t      core.Track
		source string
		secs   int64
	)
	dest := append([]any{&t.ID, &source, &t.Title, &t.Artist, &t.Album, &t.Cover, &t.Preview, &secs}, extra...)
	if err := row.Scan(dest...); err != nil {
		return core.Track{}, err
	}
	t.Source = core.Source(source)
	t.Duration = time.Duration(secs) * time.Second
	return t, nil
}

// RecordPlay stores one play of t by listener.
func (s *Store) RecordPlay(ctx context.Context, t core.Track, listener string) error {
	args := append([]any{uuid.NewString(), listener}, trackArgs(t)...)
	args = append(args, s.now().UTC())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO play_history (id, user_id, `+trackColumns+`, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}

// Recent returns the listener's latest plays, newest first.
func (s *Store) Recent(ctx context.Context, listener string, limit int) ([]core.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+trackColumns+`, id, user_id, played_at
		FROM play_history
		WHERE user_id = ?
		ORDER BY played_at DESC, rowid DESC
		LIMIT ?`, listener, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []core.HistoryEntry
	for rows.Next() {
		var e core.HistoryEntry
		e.Track, err = scanTrack(rows, &e.ID, &e.Listener, &e.PlayedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PlayCount returns how often the listener played the track with key.
func (s *Store) PlayCount(ctx context.Context, listener string, t core.Track) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM play_history
		WHERE user_id = ? AND track_source = ? AND track_id = ?`,
		listener, string(t.Source), t.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count plays: %w", err)
	}
	return n, nil
}

// AddFavorite marks t as a favorite. Adding it twice is not an error.
func (s *Store) AddFavorite(ctx context.Context, listener string, t core.Track) error {
	args := append([]any{uuid.NewString(), listener}, trackArgs(t)...)
	args = append(args, s.now().UTC())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (id, user_id, `+trackColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, track_source, track_id) DO NOTHING`, args...)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes a favorite by its track key (source:id).
func (s *Store) RemoveFavorite(ctx context.Context, listener, key string) error {
	source, id, ok := splitKey(key)
	if !ok {
		return fmt.Errorf("invalid track key %q", key)
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND track_source = ? AND track_id = ?`,
		listener, source, id)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("favorite %s: %w", key, ErrNotFound)
	}
	return nil
}

// IsFavorite reports whether t is one of the listener's favorites.
func (s *Store) IsFavorite(ctx context.Context, listener string, t core.Track) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = ? AND track_source = ? AND track_id = ?)`,
		listener, string(t.Source), t.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// Favorites lists the listener's favorites, most recently added first.
func (s *Store) Favorites(ctx context.Context, listener string) ([]core.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+trackColumns+`
		FROM favorites
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, listener)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tracks []core.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func splitKey(key string) (source, id string, ok bool) {
	source, id, ok = strings.Cut(key, ":")
	return source, id, ok && source != "" && id != ""
}

var _ core.PlayRecorder = (*Store)(nil)
