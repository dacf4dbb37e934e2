package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/morlov/photofeed/internal/common"
)

func signedToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestOwnerIDFromToken_UserIDClaim(t *testing.T) {
	token := signedToken(t, Claims{UserID: "u1"})

	owner, err := OwnerIDFromToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "u1" {
		t.Fatalf("want u1, got %q", owner)
	}
}

func TestOwnerIDFromToken_SubjectFallback(t *testing.T) {
	token := signedToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-owner",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	owner, err := OwnerIDFromToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "subject-owner" {
		t.Fatalf("want subject-owner, got %q", owner)
	}
}

func TestOwnerIDFromToken_MissingIdentity(t *testing.T) {
	token := signedToken(t, Claims{})

	if _, err := OwnerIDFromToken(token); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestOwnerIDFromToken_Malformed(t *testing.T) {
	if _, err := OwnerIDFromToken("not.a.token"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}
