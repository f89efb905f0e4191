package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// VisionCacheEntry is a cached vision model reply.
type VisionCacheEntry struct {
	Reply     string
	Model     string
	CreatedAt time.Time
}

// VisionCache stores raw vision model replies keyed by a hash of the image
// and prompt.
type VisionCache interface {
	GetVisionCache(key string) (*VisionCacheEntry, error)
	SetVisionCache(key string, entry *VisionCacheEntry) error
}

// SQLiteStore implements VisionCache on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
	mu     sync.RWMutex
}

// Ensure SQLiteStore implements VisionCache
var _ VisionCache = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the cache database at dbPath. Entries
// older than maxAge are treated as missing; zero keeps entries forever.
func NewSQLiteStore(dbPath string, maxAge time.Duration) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, maxAge: maxAge}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions (only works once the file exists)
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("dbPath", dbPath).Msg("could not restrict cache file permissions")
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		cache_key TEXT PRIMARY KEY,
		reply TEXT NOT NULL,
		model TEXT,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionCache retrieves a cached reply. Returns nil, nil if no live entry
// exists.
func (s *SQLiteStore) GetVisionCache(key string) (*VisionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VisionCacheEntry
	var model sql.NullString
	err := s.db.QueryRow(
		"SELECT reply, model, created_at FROM vision_cache WHERE cache_key = ?",
		key,
	).Scan(&entry.Reply, &model, &entry.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	if s.maxAge > 0 && time.Since(entry.CreatedAt) > s.maxAge {
		return nil, nil
	}

	entry.Model = model.String
	return &entry, nil
}

// SetVisionCache stores or replaces a cached reply.
func (s *SQLiteStore) SetVisionCache(key string, entry *VisionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (cache_key, reply, model, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			reply = excluded.reply,
			model = excluded.model,
			created_at = excluded.created_at
	`, key, entry.Reply, entry.Model, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save vision cache: %w", err)
	}
	return nil
}

// PruneVisionCache deletes entries created before cutoff and returns how many
// were removed.
func (s *SQLiteStore) PruneVisionCache(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM vision_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune vision cache: %w", err)
	}
	return res.RowsAffected()
}
