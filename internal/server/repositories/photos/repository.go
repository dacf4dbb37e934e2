package photos

import (
	"context"
	"time"

	"github.com/morlov/photofeed/internal/server/cursor"
	"github.com/morlov/photofeed/internal/server/models"
)

// Repository is the metadata store for catalog entries. Reads may be
// eventually consistent with respect to Create: a freshly inserted record is
// not guaranteed to appear immediately in ScanPage or QueryByOwner results.
type Repository interface {
	// Create inserts a new record. Returns common.ErrConflict if a record
	// with the same ID already exists. Records are never updated in place.
	Create(ctx context.Context, photo *models.Photo) error

	// ScanPage returns up to limit records from the whole catalog in
	// ascending (uploadedAt, id) order, strictly after the given cursor.
	// A zero cursor scans from the start.
	ScanPage(ctx context.Context, after cursor.Cursor, limit int) ([]*models.Photo, error)

	// QueryByOwner is ScanPage restricted to one owner via the secondary index.
	QueryByOwner(ctx context.Context, ownerID string, after cursor.Cursor, limit int) ([]*models.Photo, error)

	// KeyBounds returns the minimum and maximum uploadedAt present in the
	// catalog, or common.ErrNotFound when the catalog is empty. Used by the
	// random sampler to pick a probe point without scanning.
	KeyBounds(ctx context.Context) (min, max time.Time, err error)
}
