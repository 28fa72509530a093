// Package auth verifies the tokens remote-dashboard callers present at the
// access gateway. Tokens are minted by the cloud backend; GenerateToken
// exists for provisioning and tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	CallerID string `json:"caller_id"`
}

// GenerateToken mints an HS256 token identifying a dashboard caller.
func GenerateToken(callerID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		CallerID: callerID,
	})

	return token.SignedString(secretKey)
}

// CallerIDFromToken validates the token and extracts the caller identity.
func CallerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid || claims.CallerID == "" {
		return "", ErrInvalidToken
	}

	return claims.CallerID, nil
}
