package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
)

const table = "generated_listings"

var columns = []string{
	"id", "request_id", "platform", "product_name", "title", "tags", "listing", "overall_score", "created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `CREATE TABLE IF NOT EXISTS generated_listings (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	platform TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	listing JSONB NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS generated_listings_created_at_idx ON generated_listings (created_at DESC);`

// PostgresRepository persists generated listings into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ListingRepository = (*PostgresRepository)(nil)

// Open connects to Postgres and makes sure the schema exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SaveGenerated inserts listings; records already stored are left untouched.
func (r *PostgresRepository) SaveGenerated(ctx context.Context, listings []domain.GeneratedListing) error {
	if r.db == nil || len(listings) == 0 {
		return nil
	}

	query, args, err := insertQuery(listings)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert listings: %w", err)
	}
	return nil
}

// Recent returns up to limit listings, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]domain.GeneratedListing, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := recentQuery(limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}

	var result []domain.GeneratedListing
	for rows.Next() {
		var (
			rec     domain.GeneratedListing
			title   string
			tags    pq.StringArray
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.Platform, &rec.ProductName,
			&title, &tags, &payload, &rec.OverallScore, &rec.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		if err := decodeListing(payload, &rec); err != nil {
			_ = rows.Close()
			return nil, err
		}
		fillFromColumns(&rec, title, tags)
		result = append(result, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// PurgeBefore deletes listings created before cutoff and reports how many went.
func (r *PostgresRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.db == nil {
		return 0, nil
	}

	query, args, err := purgeQuery(cutoff)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func insertQuery(listings []domain.GeneratedListing) (string, []any, error) {
	builder := psql.Insert(table).Columns(columns...)
	for _, rec := range listings {
		payload, err := json.Marshal(rec.Listing)
		if err != nil {
			return "", nil, fmt.Errorf("marshal listing %s: %w", rec.ID, err)
		}
		builder = builder.Values(
			rec.ID,
			rec.RequestID,
			rec.Platform,
			rec.ProductName,
			rec.Listing.Title,
			pq.StringArray(rec.Listing.Tags),
			string(payload),
			rec.OverallScore,
			rec.CreatedAt.UTC(),
		)
	}

	query, args, err := builder.Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return query, args, nil
}

func recentQuery(limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := psql.Select(columns...).
		From(table).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select: %w", err)
	}
	return query, args, nil
}

func purgeQuery(cutoff time.Time) (string, []any, error) {
	query, args, err := psql.Delete(table).
		Where(sq.Lt{"created_at": cutoff.UTC()}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build delete: %w", err)
	}
	return query, args, nil
}

// fillFromColumns restores the title and tags from their own columns when
// the stored listing payload lacks them.
func fillFromColumns(rec *domain.GeneratedListing, title string, tags []string) {
	if strings.TrimSpace(rec.Listing.Title) == "" {
		rec.Listing.Title = title
	}
	if len(rec.Listing.Tags) == 0 && len(tags) > 0 {
		rec.Listing.Tags = domain.NewTags(tags...)
	}
}

func decodeListing(payload []byte, rec *domain.GeneratedListing) error {
	if err := json.Unmarshal(payload, &rec.Listing); err != nil {
		return fmt.Errorf("decode listing %s: %w", rec.ID, err)
	}
	return nil
}
