package credentials

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the backend puts into its JWT credentials.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Inspect decodes credential without verifying its signature. The client
// never holds the signing key; the result is only used to show the user an
// expiry time and must not be treated as proof of anything.
func Inspect(credential string) (*Claims, error) {
	if credential == "" {
		return nil, common.ErrNoCredential
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of credential. ok is false for opaque
// credentials or tokens without an expiry.
func ExpiresAt(credential string) (t time.Time, ok bool) {
	claims, err := Inspect(credential)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
