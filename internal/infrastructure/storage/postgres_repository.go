package storage

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS news_articles (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		published_at TIMESTAMPTZ NOT NULL,
		sentiment_score DOUBLE PRECISION NOT NULL CHECK (sentiment_score >= 0 AND sentiment_score <= 1),
		sentiment_label TEXT NOT NULL,
		fake_news_probability DOUBLE PRECISION NOT NULL CHECK (fake_news_probability >= 0 AND fake_news_probability <= 1),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS news_articles_url_key ON news_articles (url)`,
	`CREATE INDEX IF NOT EXISTS news_articles_published_at_idx ON news_articles (published_at DESC)`,
}

// NewPostgresRepository wires a sql.DB opened with the lib/pq driver.
func NewPostgresRepository(db *sql.DB) *Repository {
	return newRepository(db, dialect{
		name:              "postgres",
		placeholder:       sq.Dollar,
		schema:            postgresSchema,
		isUniqueViolation: isPostgresUniqueViolation,
	})
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
