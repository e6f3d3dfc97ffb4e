package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spendlog/expense-api/internal/models"
	"github.com/spendlog/expense-api/internal/services"
)

const accessTokenType = "access"

// ErrInvalidToken is returned when a token fails signature, expiry or
// shape validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims defines the JWT claims structure. The subject is always the
// user id formatted as a decimal string and is treated as opaque.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

type contextKey string

// UserContextKey is the context key under which the middleware stores the
// resolved user.
const UserContextKey = contextKey("authUser")

// TokenManager issues and validates signed access tokens and resolves
// them to user records.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	users  services.UserServiceProvider
}

// NewTokenManager creates a TokenManager signing with the given shared
// secret and issuing tokens valid for ttlMinutes.
func NewTokenManager(secret string, ttlMinutes int, users services.UserServiceProvider) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		users:  users,
	}
}

// GenerateToken creates a new signed access token for a given user.
func (m *TokenManager) GenerateToken(user models.User) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a token string, checking signature,
// expiry, not-before and the access token-type marker.
func (m *TokenManager) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != accessTokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ResolveUser maps a validated token to its user record. A subject that
// does not name an existing user fails the same way a bad token does.
func (m *TokenManager) ResolveUser(claims *Claims) (models.User, error) {
	if claims.Subject == "" {
		return models.User{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return models.User{}, ErrInvalidToken
	}
	user, err := m.users.GetUserByID(id)
	if err != nil {
		return models.User{}, ErrInvalidToken
	}
	return user, nil
}

// Middleware creates a middleware for protecting routes. It validates the
// bearer token, loads the authenticated user and passes it down via the
// request context.
func (m *TokenManager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenStr = parts[1]
				}
			}
			if tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			claims, err := m.ValidateToken(tokenStr)
			if err != nil {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			user, err := m.ResolveUser(claims)
			if err != nil {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user stored by the middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(models.User)
	return user, ok
}
