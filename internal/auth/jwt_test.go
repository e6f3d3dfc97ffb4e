package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spendlog/expense-api/internal/database"
	"github.com/spendlog/expense-api/internal/models"
	"github.com/spendlog/expense-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testSecret = "test-secret"

// TokenManagerTestSuite provides a test suite for token issuance,
// validation and the auth middleware.
type TokenManagerTestSuite struct {
	suite.Suite
	db     *sql.DB
	users  *services.UserService
	tokens *TokenManager
	user   models.User
}

func (s *TokenManagerTestSuite) SetupTest() {
	db, err := database.New("file::memory:")
	require.NoError(s.T(), err)
	db.SetMaxOpenConns(1)
	require.NoError(s.T(), database.Migrate(db))

	s.db = db
	s.users = services.NewUserService(db)
	s.tokens = NewTokenManager(testSecret, 60, s.users)

	s.user, err = s.users.CreateUser("a@x.com", "secret1", nil)
	require.NoError(s.T(), err)
}

func (s *TokenManagerTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *TokenManagerTestSuite) TestRoundTrip() {
	token, err := s.tokens.GenerateToken(s.user)
	require.NoError(s.T(), err)

	claims, err := s.tokens.ValidateToken(token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "access", claims.TokenType)
	assert.Equal(s.T(), strconv.FormatInt(s.user.ID, 10), claims.Subject)
	assert.NotEmpty(s.T(), claims.ID, "token carries a jti")
	require.NotNil(s.T(), claims.ExpiresAt)
	require.NotNil(s.T(), claims.IssuedAt)
	require.NotNil(s.T(), claims.NotBefore)

	resolved, err := s.tokens.ResolveUser(claims)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user.ID, resolved.ID)
}

func (s *TokenManagerTestSuite) TestExpiredToken() {
	expired := NewTokenManager(testSecret, -1, s.users)
	token, err := expired.GenerateToken(s.user)
	require.NoError(s.T(), err)

	_, err = s.tokens.ValidateToken(token)
	assert.ErrorIs(s.T(), err, ErrInvalidToken)
}

func (s *TokenManagerTestSuite) TestWrongSecret() {
	other := NewTokenManager("other-secret", 60, s.users)
	token, err := other.GenerateToken(s.user)
	require.NoError(s.T(), err)

	_, err = s.tokens.ValidateToken(token)
	assert.ErrorIs(s.T(), err, ErrInvalidToken)
}

func (s *TokenManagerTestSuite) TestWrongTokenType() {
	now := time.Now().UTC()
	claims := &Claims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(s.user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(s.T(), err)

	_, err = s.tokens.ValidateToken(token)
	assert.ErrorIs(s.T(), err, ErrInvalidToken)
}

func (s *TokenManagerTestSuite) TestResolveUnknownSubject() {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "9999"}}
	_, err := s.tokens.ResolveUser(claims)
	assert.ErrorIs(s.T(), err, ErrInvalidToken)

	claims.Subject = ""
	_, err = s.tokens.ResolveUser(claims)
	assert.ErrorIs(s.T(), err, ErrInvalidToken)
}

func (s *TokenManagerTestSuite) middlewareProbe() (http.Handler, *models.User) {
	seen := &models.User{}
	handler := s.tokens.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(s.T(), ok)
		*seen = user
		w.WriteHeader(http.StatusOK)
	}))
	return handler, seen
}

func (s *TokenManagerTestSuite) TestMiddlewareAcceptsValidToken() {
	handler, seen := s.middlewareProbe()
	token, err := s.tokens.GenerateToken(s.user)
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), s.user.ID, seen.ID)
}

func (s *TokenManagerTestSuite) TestMiddlewareRejections() {
	handler, _ := s.middlewareProbe()

	// Missing header
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	// Garbage token
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	// Valid token whose user no longer exists
	token, err := s.tokens.GenerateToken(s.user)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.users.DeleteUser(s.user.ID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func TestTokenManagerTestSuite(t *testing.T) {
	suite.Run(t, new(TokenManagerTestSuite))
}
