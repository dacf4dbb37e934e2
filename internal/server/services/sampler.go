package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/morlov/photofeed/internal/common"
	"github.com/morlov/photofeed/internal/server/cursor"
	"github.com/morlov/photofeed/internal/server/models"
	"github.com/morlov/photofeed/internal/server/repositories/photos"
)

// RandomSampler picks an approximately uniform subset of the catalog without
// a full scan. Postgres exposes no random-shard primitive, so the sampler
// probes a uniform random uploaded_at within the observed key bounds and
// reads forward, wrapping to the start once if the probe landed near the end.
// Uniformity is approximate: records right after sparse regions of the key
// space are slightly more likely to be picked. The trade is boundedness: one
// bounds query plus at most two page reads per call.
type RandomSampler struct {
	photos photos.Repository

	// RandInt64 is the randomness source for the probe, replaceable in
	// tests to make sampled pages deterministic.
	RandInt64 func(n int64) int64
}

func NewRandomSampler(photos photos.Repository) *RandomSampler {
	return &RandomSampler{
		photos:    photos,
		RandInt64: rand.Int64N,
	}
}

// Sample returns up to n records, deduplicated by photo ID. An empty catalog
// yields an empty slice.
func (s *RandomSampler) Sample(ctx context.Context, n int) ([]*models.Photo, error) {
	min, max, err := s.photos.KeyBounds(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("sampler bounds: %w", err)
	}

	span := max.UnixMicro() - min.UnixMicro()
	probe := time.UnixMicro(min.UnixMicro() + s.RandInt64(span+1)).UTC()

	// The probe cursor carries an empty tiebreaker, so records at exactly
	// the probe timestamp are still included.
	page, err := s.photos.ScanPage(ctx, cursor.Cursor{UploadedAt: probe}, n)
	if err != nil {
		return nil, fmt.Errorf("sampler scan: %w", err)
	}

	if len(page) >= n {
		return page, nil
	}

	// Probe landed near the end of the key space: wrap to the beginning
	// and top the page up, dropping anything already picked.
	wrapped, err := s.photos.ScanPage(ctx, cursor.Cursor{}, n-len(page))
	if err != nil {
		return nil, fmt.Errorf("sampler wrap scan: %w", err)
	}

	seen := make(map[string]struct{}, len(page))
	for _, p := range page {
		seen[p.ID] = struct{}{}
	}
	for _, p := range wrapped {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		page = append(page, p)
	}

	return page, nil
}
