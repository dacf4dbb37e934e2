// Package photos provides the PostgreSQL-backed metadata store for the
// photo catalog.
package photos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/morlov/photofeed/internal/common"
	"github.com/morlov/photofeed/internal/dbx"
	"github.com/morlov/photofeed/internal/server/cursor"
	"github.com/morlov/photofeed/internal/server/models"
)

// PostgresRepository implements photo storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const photoColumns = `id, owner_id, object_key, content_type, uploaded_at, metadata`

// Create inserts a new photo record. The insert never updates an existing
// row: a duplicate ID affects zero rows and surfaces as common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, owner_id, object_key, content_type, uploaded_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING;
	`

	var metadata any
	if photo.Metadata != nil {
		raw, err := json.Marshal(photo.Metadata)
		if err != nil {
			return fmt.Errorf("metadata marshal error: %w", err)
		}
		metadata = raw
	}

	res, err := r.db.ExecContext(ctx, query,
		photo.ID, photo.OwnerID, photo.ObjectKey, photo.ContentType, photo.UploadedAt, metadata)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// ScanPage returns up to limit records in ascending (uploaded_at, id) order,
// strictly after the cursor position. The ID tiebreaker is compared as text
// so the order matches what the pagination codec round-trips.
func (r *PostgresRepository) ScanPage(ctx context.Context, after cursor.Cursor, limit int) ([]*models.Photo, error) {
	if after.IsZero() {
		query := `SELECT ` + photoColumns + ` FROM photos
		ORDER BY uploaded_at, id::text
		LIMIT $1`
		return r.selectPhotos(ctx, query, limit)
	}

	query := `SELECT ` + photoColumns + ` FROM photos
		WHERE (uploaded_at, id::text) > ($1, $2)
		ORDER BY uploaded_at, id::text
		LIMIT $3`
	return r.selectPhotos(ctx, query, after.UploadedAt, after.PhotoID, limit)
}

// QueryByOwner is ScanPage restricted to a single owner.
func (r *PostgresRepository) QueryByOwner(ctx context.Context, ownerID string, after cursor.Cursor, limit int) ([]*models.Photo, error) {
	if after.IsZero() {
		query := `SELECT ` + photoColumns + ` FROM photos
		WHERE owner_id = $1
		ORDER BY uploaded_at, id::text
		LIMIT $2`
		return r.selectPhotos(ctx, query, ownerID, limit)
	}

	query := `SELECT ` + photoColumns + ` FROM photos
		WHERE owner_id = $1 AND (uploaded_at, id::text) > ($2, $3)
		ORDER BY uploaded_at, id::text
		LIMIT $4`
	return r.selectPhotos(ctx, query, ownerID, after.UploadedAt, after.PhotoID, limit)
}

// KeyBounds reports the observed uploaded_at range, feeding the sampler's
// random probe. An empty catalog yields common.ErrNotFound.
func (r *PostgresRepository) KeyBounds(ctx context.Context) (time.Time, time.Time, error) {
	query := `SELECT min(uploaded_at), max(uploaded_at) FROM photos`

	var min, max sql.NullTime
	if err := r.db.QueryRowContext(ctx, query).Scan(&min, &max); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("db error: %w", err)
	}
	if !min.Valid || !max.Valid {
		return time.Time{}, time.Time{}, common.ErrNotFound
	}
	return min.Time, max.Time, nil
}

func (r *PostgresRepository) selectPhotos(ctx context.Context, query string, args ...any) ([]*models.Photo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []*models.Photo
	for rows.Next() {
		var item models.Photo
		var metadata []byte
		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.ObjectKey, &item.ContentType, &item.UploadedAt, &metadata,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
				return nil, fmt.Errorf("metadata unmarshal error: %w", err)
			}
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
