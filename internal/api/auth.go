package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousUser is the subject of requests when no JWT secret is set
const AnonymousUser = "anonymous"

type userKey struct{}

// WithUser stores the authenticated subject in ctx
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated subject, "" when absent
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// AuthManager validates HMAC signed bearer tokens
type AuthManager struct {
	jwtSecret []byte
}

// NewAuthManager creates a new auth manager. An empty secret disables auth.
func NewAuthManager(jwtSecret string) *AuthManager {
	return &AuthManager{jwtSecret: []byte(jwtSecret)}
}

// Enabled reports whether tokens are required
func (a *AuthManager) Enabled() bool {
	return len(a.jwtSecret) > 0
}

// ValidateToken validates a JWT token and returns the user ID
func (a *AuthManager) ValidateToken(tokenString string) (string, error) {
	if !a.Enabled() {
		return AnonymousUser, nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("user_id not found in token")
}

// ExtractTokenFromHeader accepts "Bearer <token>" or a bare token
func ExtractTokenFromHeader(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is empty")
	}

	parts := strings.Fields(authHeader)
	switch len(parts) {
	case 1:
		return parts[0], nil
	case 2:
		if !strings.EqualFold(parts[0], "bearer") {
			return "", fmt.Errorf("invalid authorization header format")
		}
		return parts[1], nil
	}
	return "", fmt.Errorf("invalid authorization header format")
}
