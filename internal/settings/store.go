// Package settings persists operator preferences (default folders) in a
// small SQLite key/value table. Only the known keys are accepted.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fieldingest/internal/config"
	"fieldingest/internal/services"
)

// Key names one setting.
type Key string

const (
	KeyOriginalImages  Key = "base_folder_of_original_images"
	KeyOriginalVideos  Key = "base_folder_of_original_videos"
	KeyOptimizedImages Key = "base_folder_of_optimized_images"
	KeyVideos          Key = "base_folder_of_videos"
	KeyLocalOutput     Key = "local_output_folder"
	KeyReportDir       Key = "report_dir"
)

var knownKeys = []Key{
	KeyOriginalImages,
	KeyOriginalVideos,
	KeyOptimizedImages,
	KeyVideos,
	KeyLocalOutput,
	KeyReportDir,
}

// ErrUnknownKey rejects keys outside the known set.
var ErrUnknownKey = errors.New("unknown settings key")

// Keys lists every known key.
func Keys() []Key {
	return append([]Key(nil), knownKeys...)
}

// ParseKey validates a key name.
func ParseKey(value string) (Key, error) {
	key := Key(strings.ToLower(strings.TrimSpace(value)))
	for _, k := range knownKeys {
		if k == key {
			return key, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "settings", "parse key", fmt.Sprintf("Unknown settings key %q", value), ErrUnknownKey)
}

// Entry is one key with its stored value.
type Entry struct {
	Key       Key
	Value     string
	Set       bool
	UpdatedAt time.Time
}

// Store manages settings persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the settings database under the configured state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.SettingsDBPath())
}

// OpenPath connects to the database at dbPath and applies migrations.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the stored value of key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	k, err := ParseKey(key)
	if err != nil {
		return "", false, err
	}
	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, string(k)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", k, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(k), value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", k, err)
	}
	return nil
}

// Delete clears key.
func (s *Store) Delete(ctx context.Context, key string) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, string(k)); err != nil {
		return fmt.Errorf("delete setting %s: %w", k, err)
	}
	return nil
}

// List returns every known key in declaration order, set or not.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	stored := make(map[Key]Entry)
	for rows.Next() {
		var key, value, updated string
		if err := rows.Scan(&key, &value, &updated); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, updated)
		stored[Key(key)] = Entry{Key: Key(key), Value: value, Set: true, UpdatedAt: ts}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}

	out := make([]Entry, 0, len(knownKeys))
	for _, k := range knownKeys {
		if e, ok := stored[k]; ok {
			out = append(out, e)
			continue
		}
		out = append(out, Entry{Key: k})
	}
	return out, nil
}
