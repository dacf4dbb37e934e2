// Package cursor implements the opaque continuation token used by catalog
// pagination. A token encodes the (uploadedAt, photoID) position of the last
// item returned, tagged with an HMAC so tampering is detectable. The encoding
// is versioned: a future sort-key schema change is rejected on decode rather
// than silently misinterpreted.
package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/morlov/photofeed/internal/common"
)

// version is bumped whenever the payload layout changes.
const version = 1

// Cursor is a resume position in the catalog's (uploadedAt, photoID) order.
// The zero value means "start of list".
type Cursor struct {
	UploadedAt time.Time
	PhotoID    string
}

// IsZero reports whether the cursor is the start-of-list sentinel.
func (c Cursor) IsZero() bool {
	return c.UploadedAt.IsZero() && c.PhotoID == ""
}

// Codec encodes cursors to opaque strings and back. Safe for concurrent use.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode serializes the cursor as v|unixMicros|photoID|tag and wraps it in
// url-safe base64. Timestamps are truncated to microseconds, matching the
// precision the store persists, so Decode(Encode(c)) == c for stored keys.
func (c *Codec) Encode(cur Cursor) string {
	payload := fmt.Sprintf("%d|%d|%s", version, cur.UploadedAt.UnixMicro(), cur.PhotoID)
	tag := c.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + "|" + tag))
}

// Decode parses a token produced by Encode. An empty token yields the
// start-of-list cursor. Anything malformed, version-skewed, or carrying a
// wrong integrity tag fails with common.ErrInvalidCursor; callers must
// surface that, never fall back to the start of the list.
func (c *Codec) Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	// Strict decoding rejects non-canonical base64, so every byte of the
	// token is covered by the integrity check.
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", common.ErrInvalidCursor, err)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 {
		return Cursor{}, common.ErrInvalidCursor
	}

	payload := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(c.sign(payload)), []byte(parts[3])) {
		return Cursor{}, common.ErrInvalidCursor
	}

	v, err := strconv.Atoi(parts[0])
	if err != nil || v != version {
		return Cursor{}, common.ErrInvalidCursor
	}

	micros, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, common.ErrInvalidCursor
	}

	return Cursor{
		UploadedAt: time.UnixMicro(micros).UTC(),
		PhotoID:    parts[2],
	}, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
