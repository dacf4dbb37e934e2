package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/morlov/photofeed/internal/common"
	"github.com/morlov/photofeed/internal/logging"
	sc "github.com/morlov/photofeed/internal/server/config"
	"github.com/morlov/photofeed/internal/server/models"
	"github.com/morlov/photofeed/internal/server/repositories/repomanager"
)

// allowedContentTypes is the image MIME allow-list for uploads.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// maxMetadataBytes bounds the serialized size of the free-form metadata
// mapping. The content itself is opaque to the service.
const maxMetadataBytes = 4096

// retryBaseDelay is the initial exponential-backoff delay for store and
// issuance retries.
var retryBaseDelay = 100 * time.Millisecond

// UploadService coordinates capability issuance with the optimistic metadata
// write. It is the only component that creates photo records. The record is
// written before the object is confirmed in storage; a record whose object
// never arrives is reconciled by an external sweep, not here.
type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      CapabilityIssuer
	config      *sc.Config
	logger      logging.Logger
	newPhotoID  func() string
}

func NewUploadService(db *sql.DB, repomanager repomanager.RepositoryManager, issuer CapabilityIssuer, config *sc.Config, logger logging.Logger) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: repomanager,
		issuer:      issuer,
		config:      config,
		logger:      logger,
		newPhotoID:  func() string { return uuid.New().String() },
	}
}

// SanitizeFilename validates the client-supplied filename and returns the
// form used inside the object key. Path separators and traversal sequences
// are rejected rather than stripped.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty filename", common.ErrValidation)
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return "", fmt.Errorf("%w: filename must not contain path separators", common.ErrValidation)
	}
	if strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("%w: filename must not contain traversal sequences", common.ErrValidation)
	}
	if trimmed == "." {
		return "", fmt.Errorf("%w: empty filename after sanitization", common.ErrValidation)
	}
	return trimmed, nil
}

func validateMetadata(metadata map[string]string) error {
	size := 0
	for k, v := range metadata {
		size += len(k) + len(v)
	}
	if size > maxMetadataBytes {
		return fmt.Errorf("%w: metadata too large", common.ErrValidation)
	}
	return nil
}

// RequestUpload validates the request, mints a write capability for the
// derived object key, and records the catalog entry. The capability is
// returned only after the metadata write commits, so every capability a
// caller ever sees has a matching record. The inverse gap (record without
// object) is the accepted trade-off.
//
// Not idempotent: every call mints a fresh photo ID, retried callers get a
// new catalog entry.
func (s *UploadService) RequestUpload(ctx context.Context, ownerID, filename, contentType string, metadata map[string]string) (*models.Photo, *models.UploadCapability, error) {
	if ownerID == "" {
		return nil, nil, common.ErrUnauthorized
	}

	sanitized, err := SanitizeFilename(filename)
	if err != nil {
		return nil, nil, err
	}

	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, nil, fmt.Errorf("%w: %q", common.ErrInvalidContentType, contentType)
	}

	if err := validateMetadata(metadata); err != nil {
		return nil, nil, err
	}

	// A duplicate ID is astronomically unlikely but checked; one retry with
	// a fresh ID before giving up. The object key depends on the ID, so the
	// capability is re-minted on the retry as well.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		photoID := s.newPhotoID()
		objectKey := fmt.Sprintf("%s/%s/%s", ownerID, photoID, sanitized)

		capability, err := s.issueCapability(ctx, objectKey, contentType)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", common.ErrCapabilityIssuance, err)
		}

		photo := &models.Photo{
			ID:          photoID,
			OwnerID:     ownerID,
			ObjectKey:   objectKey,
			ContentType: contentType,
			// Truncated to the precision the store keeps, so the value a
			// cursor round-trips compares equal to the stored key.
			UploadedAt: time.Now().UTC().Truncate(time.Microsecond),
			Metadata:   metadata,
		}

		if err := s.createRecord(ctx, photo); err != nil {
			if errors.Is(err, common.ErrConflict) {
				s.logger.Warn(ctx, "photo id collision, retrying with a fresh id", "photo_id", photoID)
				lastErr = err
				continue
			}
			// The minted capability is discarded here: the caller must not
			// receive a usable URL without a matching catalog entry.
			return nil, nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}

		return photo, capability, nil
	}

	return nil, nil, fmt.Errorf("%w: %v", common.ErrInternal, lastErr)
}

// issueCapability calls the issuer under a bounded timeout with exponential
// backoff, up to 3 attempts.
func (s *UploadService) issueCapability(ctx context.Context, objectKey, contentType string) (*models.UploadCapability, error) {
	var capability *models.UploadCapability

	err := retry.Do(ctx, retry.WithMaxRetries(2, retry.NewExponential(retryBaseDelay)), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()

		c, err := s.issuer.IssuePutURL(callCtx, objectKey, contentType, s.config.CapabilityExpiry)
		if err != nil {
			return retry.RetryableError(err)
		}
		capability = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return capability, nil
}

// createRecord writes the photo row under a bounded timeout with exponential
// backoff. Conflicts are not retried here; the caller handles them by
// generating a fresh ID.
func (s *UploadService) createRecord(ctx context.Context, photo *models.Photo) error {
	repo := s.repomanager.Photos(s.db)

	return retry.Do(ctx, retry.WithMaxRetries(2, retry.NewExponential(retryBaseDelay)), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()

		if err := repo.Create(callCtx, photo); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
