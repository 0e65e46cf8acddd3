package jwt

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/inkwell/portfolio/pkg/file"
)

// TokenInfo is what the sync tooling needs to know about a bearer token.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero when the token has no exp claim
	Verified  bool      // signature checked against a configured secret
}

// Expired reports whether the token is past its expiry at now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// JWTManagerInterface defines methods to load and inspect bearer tokens.
type JWTManagerInterface interface {
	LoadJWT(path string) (string, error)
	Inspect(token string) (*TokenInfo, error)
}

// JWTManager reads bearer tokens and inspects their claims. Without a secret the
// signature is not verified; the backend remains the authority.
type JWTManager struct {
	FileOps file.FileOperations
	Secret  []byte
}

// NewJWTManager returns a JWTManager. secret may be nil.
func NewJWTManager(fileOps file.FileOperations, secret []byte) *JWTManager {
	return &JWTManager{FileOps: fileOps, Secret: secret}
}

// LoadJWT reads a token from path. A missing or empty file yields an empty token.
func (jm *JWTManager) LoadJWT(path string) (string, error) {
	data, err := jm.FileOps.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(data), nil
}

// Inspect decodes token claims. Expired tokens are returned without error so callers
// can decide how to react.
func (jm *JWTManager) Inspect(tokenString string) (*TokenInfo, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	info := &TokenInfo{}
	if len(jm.Secret) > 0 {
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jm.Secret, nil
		})
		var validationErr *jwt.ValidationError
		if err != nil && !(errors.As(err, &validationErr) && validationErr.Errors == jwt.ValidationErrorExpired) {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		info.Verified = true
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("malformed token: %w", err)
		}
	}

	if sub, ok := claims["sub"].(string); ok {
		info.Subject = sub
	}
	switch exp := claims["exp"].(type) {
	case float64:
		info.ExpiresAt = time.Unix(int64(exp), 0)
	case nil:
	default:
		return nil, errors.New("JWT expiration (exp) claim is invalid")
	}
	return info, nil
}
