package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/morlov/photofeed/internal/logging"
	sc "github.com/morlov/photofeed/internal/server/config"
	"github.com/morlov/photofeed/internal/server/cursor"
	"github.com/morlov/photofeed/internal/server/models"
	"github.com/morlov/photofeed/internal/server/repositories/repomanager"
)

const (
	// DefaultPageSize is used when the client does not ask for a limit.
	DefaultPageSize = 10
	// MaxPageSize is the hard cap on one browse page.
	MaxPageSize = 50
)

// BrowsePage is one page of catalog results. NextCursor is empty when the
// page exhausted the data.
type BrowsePage struct {
	Items      []models.BrowseItem
	NextCursor string
}

// CatalogService answers browse requests over the photo catalog. A request
// without a cursor gets a randomized first page; a request with a cursor
// resumes the stable (uploadedAt, photoID) order from that position. Mixing
// further random pages into a cursor chain would break the no-duplicate,
// no-skip pagination guarantee, so randomness applies to the first page only.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *cursor.Codec
	sampler     *RandomSampler
	config      *sc.Config
	logger      logging.Logger
}

func NewCatalogService(db *sql.DB, repomanager repomanager.RepositoryManager, codec *cursor.Codec, sampler *RandomSampler, config *sc.Config, logger logging.Logger) *CatalogService {
	return &CatalogService{
		db:          db,
		repomanager: repomanager,
		codec:       codec,
		sampler:     sampler,
		config:      config,
		logger:      logger,
	}
}

// clampLimit applies the [1, MaxPageSize] clamp; zero means "not specified"
// and falls back to the default.
func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultPageSize
	case limit < 1:
		return 1
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

// Browse returns one page of the catalog. An empty rawCursor samples a
// randomized page; otherwise the cursor is decoded (failing the whole call
// on tampering) and the scan resumes strictly after it.
func (s *CatalogService) Browse(ctx context.Context, rawCursor string, limit int) (*BrowsePage, error) {
	limit = clampLimit(limit)

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	if rawCursor == "" {
		return s.browseSampled(ctx, limit)
	}

	after, err := s.codec.Decode(rawCursor)
	if err != nil {
		return nil, err
	}

	// Fetch one extra record to learn whether more data remains, so a page
	// that happens to end exactly at the last record still reports the end.
	page, err := s.repomanager.Photos(s.db).ScanPage(ctx, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("catalog scan: %w", err)
	}

	return s.buildPage(page, limit), nil
}

// ListByOwner returns one page of a single owner's photos in the same stable
// order, via the secondary index. There is no randomized first page here.
func (s *CatalogService) ListByOwner(ctx context.Context, ownerID, rawCursor string, limit int) (*BrowsePage, error) {
	limit = clampLimit(limit)

	after, err := s.codec.Decode(rawCursor)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	page, err := s.repomanager.Photos(s.db).QueryByOwner(ctx, ownerID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("owner scan: %w", err)
	}

	return s.buildPage(page, limit), nil
}

func (s *CatalogService) browseSampled(ctx context.Context, limit int) (*BrowsePage, error) {
	sampled, err := s.sampler.Sample(ctx, limit+1)
	if err != nil {
		return nil, err
	}

	more := len(sampled) > limit
	if more {
		sampled = sampled[:limit]
	}

	result := &BrowsePage{Items: toBrowseItems(sampled)}
	if more {
		// The sample may wrap around the end of the key space, so the
		// resume position is the largest key returned, not the last item.
		// Continuing from it keeps the chain in stable sorted order and
		// never re-serves anything from this page.
		result.NextCursor = s.codec.Encode(maxKey(sampled))
	}
	return result, nil
}

func (s *CatalogService) buildPage(page []*models.Photo, limit int) *BrowsePage {
	more := len(page) > limit
	if more {
		page = page[:limit]
	}

	result := &BrowsePage{Items: toBrowseItems(page)}
	if more {
		last := page[len(page)-1]
		result.NextCursor = s.codec.Encode(cursor.Cursor{UploadedAt: last.UploadedAt, PhotoID: last.ID})
	}
	return result
}

func toBrowseItems(page []*models.Photo) []models.BrowseItem {
	items := make([]models.BrowseItem, 0, len(page))
	for _, p := range page {
		items = append(items, models.BrowseItem{
			PhotoID:    p.ID,
			ObjectKey:  p.ObjectKey,
			UploadedAt: p.UploadedAt,
			OwnerID:    p.OwnerID,
		})
	}
	return items
}

func maxKey(page []*models.Photo) cursor.Cursor {
	var max cursor.Cursor
	for _, p := range page {
		if p.UploadedAt.After(max.UploadedAt) ||
			(p.UploadedAt.Equal(max.UploadedAt) && p.ID > max.PhotoID) {
			max = cursor.Cursor{UploadedAt: p.UploadedAt, PhotoID: p.ID}
		}
	}
	return max
}
