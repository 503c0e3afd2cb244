package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// TokenTypeAccess is the "typ" claim carried by access tokens
	TokenTypeAccess = "access"
)

var ErrSecretNotConfigured = errors.New("JWT secret not configured")

// Claims is the identity extracted from a validated token
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// TokenParser validates HMAC-signed JWTs issued by the auth service
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenParser{}
	}
	return &TokenParser{secret: []byte(secret)}
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, a "typ" claim must match it. Tokens without a
// "typ" claim are accepted. The subject is read from user_id, then id, then sub.
func (p *TokenParser) ParseAndValidateToken(tokenStr, expectedType string) (*Claims, error) {
	if p.secret == nil {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, ok := mapClaims["typ"].(string); ok && expectedType != "" && typ != expectedType {
		return nil, fmt.Errorf("invalid token type")
	}

	claims := &Claims{
		UserID: stringClaim(mapClaims, "user_id"),
		Email:  stringClaim(mapClaims, "email"),
		Role:   stringClaim(mapClaims, "role"),
	}
	if claims.UserID == "" {
		claims.UserID = stringClaim(mapClaims, "id")
	}
	if claims.UserID == "" {
		claims.UserID = stringClaim(mapClaims, "sub")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	if claims.Role == "" {
		claims.Role = RoleUser
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
