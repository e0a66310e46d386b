package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenIssuer identifies the issuer of session tokens.
const TokenIssuer = "rtcs"

var (
	// ErrInvalidToken is returned for tokens that fail validation.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrMissingSubject is returned for tokens without a user ID.
	ErrMissingSubject = errors.New("token has no subject")
)

// GenerateToken signs claims with HS256. The registered time claims and the
// issuer are overwritten; Subject must already be set.
func GenerateToken(claims *Claims, secretKey string, duration time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}

	now := time.Now()
	claims.ExpiresAt = now.Add(duration).Unix()
	claims.IssuedAt = now.Unix()
	claims.Issuer = TokenIssuer

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates tokenString using secretKey.
func ParseToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}
