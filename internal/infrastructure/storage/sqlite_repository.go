package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS news_articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		published_at TIMESTAMP NOT NULL,
		sentiment_score REAL NOT NULL CHECK (sentiment_score >= 0 AND sentiment_score <= 1),
		sentiment_label TEXT NOT NULL,
		fake_news_probability REAL NOT NULL CHECK (fake_news_probability >= 0 AND fake_news_probability <= 1),
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS news_articles_url_key ON news_articles (url)`,
	`CREATE INDEX IF NOT EXISTS news_articles_published_at_idx ON news_articles (published_at DESC)`,
}

// OpenSQLite opens a SQLite database file (or ":memory:") through modernc.org/sqlite.
// SQLite serialises writers, so the pool is pinned to a single connection.
func OpenSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		if !strings.Contains(path, "?") {
			dsn = path + "?_pragma=busy_timeout(5000)"
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteRepository wires a sql.DB opened with the modernc.org/sqlite driver.
func NewSQLiteRepository(db *sql.DB) *Repository {
	return newRepository(db, dialect{
		name:              "sqlite",
		placeholder:       sq.Question,
		schema:            sqliteSchema,
		isUniqueViolation: isSQLiteUniqueViolation,
	})
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
