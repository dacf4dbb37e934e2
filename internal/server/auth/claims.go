// Package auth extracts the uploader identity from bearer tokens minted by
// the external identity provider. Signature verification happens upstream in
// the identity integration; this package only reads the already-verified
// claims and never validates signatures itself.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/morlov/photofeed/internal/common"
)

// Claims is the token claim set. The owner identity is carried either in
// the standard subject claim or in a custom UserID claim, depending on the
// identity provider configuration.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// OwnerIDFromToken parses the bearer token and returns the owner identifier
// claim. Malformed tokens and tokens without an identity claim fail with
// common.ErrUnauthorized.
func OwnerIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}

	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	owner := claims.UserID
	if owner == "" {
		owner = claims.Subject
	}
	if owner == "" {
		return "", common.ErrUnauthorized
	}

	return owner, nil
}
