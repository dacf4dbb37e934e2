package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/morlov/photofeed/internal/common"
	"github.com/morlov/photofeed/internal/dbx"
	"github.com/morlov/photofeed/internal/logging"
	sc "github.com/morlov/photofeed/internal/server/config"
	"github.com/morlov/photofeed/internal/server/cursor"
	"github.com/morlov/photofeed/internal/server/models"
	"github.com/morlov/photofeed/internal/server/repositories/photos"
	"github.com/morlov/photofeed/internal/server/repositories/repomanager"
)

// -------- test fakes --------

// memPhotosRepo is an in-memory photos.Repository keeping records in the
// same (uploadedAt, id) order the Postgres implementation guarantees.
type memPhotosRepo struct {
	mu      sync.Mutex
	records []*models.Photo

	scanCalls   int
	createCalls int

	createErr       error
	conflictOnFirst bool
}

func keyLess(a, b *models.Photo) bool {
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.Before(b.UploadedAt)
	}
	return a.ID < b.ID
}

func (m *memPhotosRepo) Create(ctx context.Context, photo *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.conflictOnFirst && m.createCalls == 1 {
		return common.ErrConflict
	}
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range m.records {
		if p.ID == photo.ID {
			return common.ErrConflict
		}
	}
	m.records = append(m.records, photo)
	sort.Slice(m.records, func(i, j int) bool { return keyLess(m.records[i], m.records[j]) })
	return nil
}

func (m *memPhotosRepo) ScanPage(ctx context.Context, after cursor.Cursor, limit int) ([]*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scanCalls++
	var page []*models.Photo
	for _, p := range m.records {
		if !after.IsZero() {
			if p.UploadedAt.Before(after.UploadedAt) {
				continue
			}
			if p.UploadedAt.Equal(after.UploadedAt) && p.ID <= after.PhotoID {
				continue
			}
		}
		page = append(page, p)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (m *memPhotosRepo) QueryByOwner(ctx context.Context, ownerID string, after cursor.Cursor, limit int) ([]*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var page []*models.Photo
	for _, p := range m.records {
		if p.OwnerID != ownerID {
			continue
		}
		if !after.IsZero() {
			if p.UploadedAt.Before(after.UploadedAt) {
				continue
			}
			if p.UploadedAt.Equal(after.UploadedAt) && p.ID <= after.PhotoID {
				continue
			}
		}
		page = append(page, p)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (m *memPhotosRepo) KeyBounds(ctx context.Context) (time.Time, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) == 0 {
		return time.Time{}, time.Time{}, common.ErrNotFound
	}
	return m.records[0].UploadedAt, m.records[len(m.records)-1].UploadedAt, nil
}

// fakeRepoMgr hands the same in-memory repository to every caller.
type fakeRepoMgr struct {
	repo photos.Repository
}

func (f *fakeRepoMgr) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (f *fakeRepoMgr) Photos(db dbx.DBTX) photos.Repository                { return f.repo }

var _ repomanager.RepositoryManager = (*fakeRepoMgr)(nil)

// fakeIssuer records issued capabilities and can be told to fail.
type fakeIssuer struct {
	calls int
	err   error
}

func (f *fakeIssuer) IssuePutURL(ctx context.Context, objectKey, contentType string, expiry time.Duration) (*models.UploadCapability, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadCapability{
		ObjectKey: objectKey,
		URL:       fmt.Sprintf("https://storage.local/%s?signature=abc", objectKey),
		Method:    "PUT",
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

func testConfig() *sc.Config {
	return &sc.Config{
		SecretKey:        "test-secret",
		CapabilityExpiry: 15 * time.Minute,
		RequestTimeout:   time.Second,
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// seedPhotos fills the repo with n records with distinct microsecond keys.
func seedPhotos(repo *memPhotosRepo, owner string, n int) []*models.Photo {
	base := int64(1700000000000000)
	seeded := make([]*models.Photo, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Photo{
			ID:          fmt.Sprintf("00000000-0000-4000-8000-%012d", i),
			OwnerID:     owner,
			ObjectKey:   fmt.Sprintf("%s/photo-%d/img.png", owner, i),
			ContentType: "image/png",
			UploadedAt:  time.UnixMicro(base + int64(i)*1_000_000).UTC(),
		}
		repo.records = append(repo.records, p)
		seeded = append(seeded, p)
	}
	sort.Slice(repo.records, func(i, j int) bool { return keyLess(repo.records[i], repo.records[j]) })
	return seeded
}
