package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/ports"
)

const articlesTable = "news_articles"

var articleColumns = []string{
	"id",
	"title",
	"content",
	"source",
	"url",
	"published_at",
	"sentiment_score",
	"sentiment_label",
	"fake_news_probability",
	"created_at",
}

// dialect captures what differs between the supported SQL engines.
type dialect struct {
	name              string
	placeholder       sq.PlaceholderFormat
	schema            []string
	isUniqueViolation func(error) bool
}

// Repository persists enriched articles in a SQL database. URL uniqueness is
// enforced by a unique index, never by application locking.
type Repository struct {
	db      *sql.DB
	dialect dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ArticleRepository = (*Repository)(nil)

func newRepository(db *sql.DB, d dialect) *Repository {
	return &Repository{
		db:      db,
		dialect: d,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		now:     time.Now,
	}
}

// Open connects to the store named by databaseURL: postgres://... or sqlite://path.
func Open(databaseURL string) (*Repository, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return NewPostgresRepository(db), nil
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "file:"):
		db, err := OpenSQLite(strings.TrimPrefix(databaseURL, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return NewSQLiteRepository(db), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database url %q", domain.ErrInvalidArgument, databaseURL)
	}
}

// Dialect reports the SQL engine name.
func (r *Repository) Dialect() string {
	return r.dialect.name
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Migrate creates the articles table and its indexes if they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %w", domain.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether an article with the given URL is stored.
func (r *Repository) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From(articlesTable).
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", domain.ErrStoreUnavailable, err)
	}
	return true, nil
}

// Save inserts the article, assigning ID and CreatedAt. A second insert for
// the same URL fails with domain.ErrDuplicateURL.
func (r *Repository) Save(ctx context.Context, article domain.EnrichedArticle) (domain.EnrichedArticle, error) {
	if article.URL == "" {
		return domain.EnrichedArticle{}, fmt.Errorf("%w: article url is empty", domain.ErrInvalidArgument)
	}

	article.PublishedAt = article.PublishedAt.UTC()
	article.CreatedAt = r.now().UTC()

	query, args, err := r.builder.
		Insert(articlesTable).
		Columns(articleColumns[1:]...).
		Values(
			article.Title,
			article.Content,
			article.SourceName,
			article.URL,
			article.PublishedAt,
			article.SentimentScore,
			string(article.SentimentLabel),
			article.ReliabilityProbability,
			article.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.EnrichedArticle{}, fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&article.ID); err != nil {
		if r.dialect.isUniqueViolation(err) {
			return domain.EnrichedArticle{}, fmt.Errorf("%w: %s", domain.ErrDuplicateURL, article.URL)
		}
		return domain.EnrichedArticle{}, fmt.Errorf("%w: insert article: %w", domain.ErrStoreUnavailable, err)
	}

	return article, nil
}

// List returns a page of articles, most recently published first.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]domain.EnrichedArticle, error) {
	if offset < 0 || limit < 1 {
		return nil, fmt.Errorf("%w: offset must be >= 0 and limit >= 1 (got %d, %d)",
			domain.ErrInvalidArgument, offset, limit)
	}

	query, args, err := r.builder.
		Select(articleColumns...).
		From(articlesTable).
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrStoreUnavailable, err)
	}

	articles := make([]domain.EnrichedArticle, 0, limit)
	for rows.Next() {
		var (
			a     domain.EnrichedArticle
			label string
		)
		if err := rows.Scan(
			&a.ID,
			&a.Title,
			&a.Content,
			&a.SourceName,
			&a.URL,
			&a.PublishedAt,
			&a.SentimentScore,
			&label,
			&a.ReliabilityProbability,
			&a.CreatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: scan article: %w", domain.ErrStoreUnavailable, err)
		}
		a.SentimentLabel = domain.SentimentLabel(label)
		a.PublishedAt = a.PublishedAt.UTC()
		a.CreatedAt = a.CreatedAt.UTC()
		articles = append(articles, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: rows iteration: %w", domain.ErrStoreUnavailable, rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return articles, nil
}

// Count returns the number of stored articles.
func (r *Repository) Count(ctx context.Context) (int, error) {
	query, args, err := r.builder.Select("COUNT(*)").From(articlesTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}
