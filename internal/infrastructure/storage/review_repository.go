package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const batchSize = 200

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reviews (
		product_key TEXT NOT NULL,
		source_id   TEXT NOT NULL,
		body        TEXT NOT NULL,
		rating      INTEGER NOT NULL DEFAULT 0,
		reviewed_at TIMESTAMP NULL,
		PRIMARY KEY (product_key, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_product_time ON reviews (product_key, reviewed_at)`,
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// ReviewRepository persists reviews and serves them back as a ReviewProvider.
type ReviewRepository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

var (
	_ ports.ReviewRepository = (*ReviewRepository)(nil)
	_ ports.ReviewProvider   = (*ReviewRepository)(nil)
)

// NewReviewRepository wires a sql.DB opened with driver.
func NewReviewRepository(db *sql.DB, driver string) *ReviewRepository {
	var ph sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		ph = sq.Dollar
	}
	return &ReviewRepository{db: db, driver: driver, builder: sq.StatementBuilder.PlaceholderFormat(ph)}
}

// Migrate creates the reviews table when missing.
func (r *ReviewRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Version identifies the storage backend.
func (r *ReviewRepository) Version() string {
	return fmt.Sprintf("sql/%s@1", r.driver)
}

// SaveReviews upserts reviews for a normalized product key in batches; it returns the number of rows written.
func (r *ReviewRepository) SaveReviews(ctx context.Context, product string, reviews []domain.RawReview) (int, error) {
	if r.db == nil || len(reviews) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for start := 0; start < len(reviews); start += batchSize {
		end := min(start+batchSize, len(reviews))

		insert := r.builder.Insert("reviews").
			Columns("product_key", "source_id", "body", "rating", "reviewed_at").
			Suffix(`ON CONFLICT (product_key, source_id) DO UPDATE
				SET body = EXCLUDED.body,
				    rating = EXCLUDED.rating,
				    reviewed_at = EXCLUDED.reviewed_at`)
		rows := 0
		for _, rv := range reviews[start:end] {
			if rv.SourceID == "" || rv.Text == "" {
				continue
			}
			insert = insert.Values(product, rv.SourceID, rv.Text, rv.Rating, nullTime(rv.Timestamp))
			rows++
		}
		if rows == 0 {
			continue
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return 0, fmt.Errorf("build upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert reviews: %w", err)
		}
		written += rows
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// Fetch returns the newest reviews of the product; undated rows come last, ties by source id.
func (r *ReviewRepository) Fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error) {
	sel := r.builder.Select("source_id", "body", "rating", "reviewed_at").
		From("reviews").
		Where(sq.Eq{"product_key": query.Normalized}).
		OrderBy("reviewed_at IS NULL", "reviewed_at DESC", "source_id ASC")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	stmt, args, err := sel.ToSql()
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("build select: %w", err))
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.Transient(fmt.Errorf("query reviews: %w", err))
	}

	var out []domain.RawReview
	for rows.Next() {
		var (
			rv domain.RawReview
			at sql.NullTime
		)
		if err := rows.Scan(&rv.SourceID, &rv.Text, &rv.Rating, &at); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if at.Valid {
			rv.Timestamp = at.Time.UTC()
		}
		out = append(out, rv)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, domain.Transient(fmt.Errorf("rows iteration: %w", rowsErr))
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return out, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
