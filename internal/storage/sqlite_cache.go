package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"resume-parser-go/internal/constants"
)

const sqliteCacheSchema = `
CREATE TABLE IF NOT EXISTS cached_results (
	cache_key  TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
)`

// SQLiteCacheStore 本地文件缓存，供命令行工具跨进程复用解析结果
type SQLiteCacheStore struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewSQLiteCacheStore 打开或创建数据库文件
func NewSQLiteCacheStore(path string, ttl time.Duration) (*SQLiteCacheStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache path is required")
	}
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(sqliteCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}
	return &SQLiteCacheStore{db: db, path: path, ttl: ttl, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteCacheStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteCacheStore) Path() string {
	return s.path
}

func (s *SQLiteCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cached_results WHERE cache_key = ? AND expires_at > ?`,
		key, s.now().UnixNano()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteCacheStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cached_results (cache_key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, s.now().Add(s.ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", key, err)
	}
	return nil
}

// Purge 删除已过期的条目，返回删除数量
func (s *SQLiteCacheStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cached_results WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return res.RowsAffected()
}
