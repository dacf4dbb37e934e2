// Package models defines server-side data models persisted in the database.
package models

import "time"

// Photo is a catalog entry for one uploaded image. The record is written
// optimistically at capability-issuance time: the backing object may not
// exist yet in object storage, and the row is never updated afterwards.
type Photo struct {
	// ID is a random UUID-v4, unique across the store. Immutable.
	ID string
	// OwnerID is the authenticated uploader, taken verbatim from the
	// trusted token claim.
	OwnerID string
	// ObjectKey is the object-storage path, always
	// {ownerID}/{photoID}/{sanitizedFilename}. Immutable.
	ObjectKey string
	// ContentType is the declared MIME type, restricted to an allow-list.
	ContentType string
	// UploadedAt is the record creation time and the catalog sort key.
	// Combined with ID it gives the catalog a total order.
	UploadedAt time.Time
	// Metadata holds optional free-form caption/tag pairs, opaque to the core.
	Metadata map[string]string
}

// UploadCapability is an ephemeral write-only credential for exactly one
// object key. It is never persisted and never reissued for an existing key
// under a different identity.
type UploadCapability struct {
	// ObjectKey is the only key the capability authorizes.
	ObjectKey string
	// URL is the presigned HTTP URL the client PUTs the image to.
	URL string
	// Method is the HTTP verb the capability is scoped to.
	Method string
	// ExpiresAt bounds the capability lifetime (at most one hour out).
	ExpiresAt time.Time
}

// BrowseItem is the minimal public projection of a Photo returned by the
// catalog. ContentType and Metadata stay internal.
type BrowseItem struct {
	PhotoID    string    `json:"photoId"`
	ObjectKey  string    `json:"objectKey"`
	UploadedAt time.Time `json:"uploadedAt"`
	OwnerID    string    `json:"ownerId"`
}
