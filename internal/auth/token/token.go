package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

func GenerateRandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func HashSHA256(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// AccessClaims are what the API middleware reads from an access token.
type AccessClaims struct {
	UserID    uuid.UUID
	Role      string
	Superuser bool
}

// SignAccess issues an HS256 access token.
func SignAccess(c AccessClaims, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":       c.UserID.String(),
		"type":      TypeAccess,
		"role":      c.Role,
		"superuser": c.Superuser,
		"exp":       now.Add(ttl).Unix(),
		"iat":       now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
