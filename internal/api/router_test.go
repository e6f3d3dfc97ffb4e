package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/spendlog/expense-api/internal/auth"
	"github.com/spendlog/expense-api/internal/config"
	"github.com/spendlog/expense-api/internal/database"
	"github.com/spendlog/expense-api/internal/models"
	"github.com/spendlog/expense-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RouterTestSuite exercises the HTTP surface end to end against a real
// in-memory database.
type RouterTestSuite struct {
	suite.Suite
	db     *sql.DB
	router http.Handler
}

func (s *RouterTestSuite) SetupTest() {
	db, err := database.New("file::memory:")
	require.NoError(s.T(), err)
	db.SetMaxOpenConns(1)
	require.NoError(s.T(), database.Migrate(db))
	s.db = db

	cfg := &config.Config{
		SecretKey:          "test-secret",
		TokenExpireMinutes: 60,
		CORSOrigins:        []string{"*"},
		AppName:            "Expense Tracker API",
		AppVersion:         "test",
	}

	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	expenseService := services.NewExpenseService(db)
	tokens := auth.NewTokenManager(cfg.SecretKey, cfg.TokenExpireMinutes, userService)

	s.router = NewRouter(cfg, db, tokens, userService, categoryService, expenseService)
}

func (s *RouterTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *RouterTestSuite) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterTestSuite) signup(email, password string) models.User {
	rec := s.doJSON(http.MethodPost, "/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var user models.User
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &user))
	return user
}

func (s *RouterTestSuite) login(email, password string) string {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(s.T(), "bearer", body.TokenType)
	require.NotEmpty(s.T(), body.AccessToken)
	return body.AccessToken
}

func (s *RouterTestSuite) TestHealthEndpoints() {
	rec := s.doJSON(http.MethodGet, "/", "", nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "Healthy")

	rec = s.doJSON(http.MethodGet, "/db-ping", "", nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "ok")
}

func (s *RouterTestSuite) TestSignupLoginScenario() {
	user := s.signup("a@x.com", "secret1")
	assert.Equal(s.T(), int64(1), user.ID)
	assert.Equal(s.T(), "a@x.com", user.Email)

	token := s.login("a@x.com", "secret1")

	// Token resolves back to the same user
	rec := s.doJSON(http.MethodGet, "/auth/me", token, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var me models.User
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(s.T(), user.ID, me.ID)

	// Category and expense round trip
	rec = s.doJSON(http.MethodPost, "/categories", token, map[string]any{"name": "Food"})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.Category
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.Equal(s.T(), int64(1), cat.ID)

	rec = s.doJSON(http.MethodPost, "/expenses", token, map[string]any{
		"amount":      "10.00",
		"category_id": cat.ID,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.doJSON(http.MethodGet, "/expenses", token, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var list []models.Expense
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(s.T(), list, 1)
	require.NotNil(s.T(), list[0].CategoryID)
	assert.Equal(s.T(), cat.ID, *list[0].CategoryID)
	assert.Equal(s.T(), "10.00", list[0].Amount.StringFixed(2))
}

func (s *RouterTestSuite) TestSignupValidationAndConflict() {
	s.signup("a@x.com", "secret1")

	// Duplicate email
	rec := s.doJSON(http.MethodPost, "/auth/signup", "", map[string]any{
		"email": "a@x.com", "password": "secret2",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	// Short password
	rec = s.doJSON(http.MethodPost, "/auth/signup", "", map[string]any{
		"email": "b@x.com", "password": "short",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	// Bad email
	rec = s.doJSON(http.MethodPost, "/auth/signup", "", map[string]any{
		"email": "not-an-email", "password": "secret1",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestLoginBadCredentials() {
	s.signup("a@x.com", "secret1")

	form := url.Values{"username": {"a@x.com"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/auth/me", "/categories", "/expenses"} {
		rec := s.doJSON(http.MethodGet, path, "", nil)
		assert.Equal(s.T(), http.StatusUnauthorized, rec.Code, path)
	}
}

func (s *RouterTestSuite) TestCrossUserAccessIsMaskedAsNotFound() {
	s.signup("a@x.com", "secret1")
	s.signup("b@x.com", "secret2")
	tokenA := s.login("a@x.com", "secret1")
	tokenB := s.login("b@x.com", "secret2")

	rec := s.doJSON(http.MethodPost, "/categories", tokenA, map[string]any{"name": "Food"})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var cat models.Category
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &cat))

	rec = s.doJSON(http.MethodPost, "/expenses", tokenA, map[string]any{"amount": "10.00"})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var exp models.Expense
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &exp))

	// B sees 404 for A's resources on every verb, never 403
	rec = s.doJSON(http.MethodGet, "/categories/1", tokenB, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
	rec = s.doJSON(http.MethodPut, "/categories/1", tokenB, map[string]any{"name": "X"})
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
	rec = s.doJSON(http.MethodDelete, "/categories/1", tokenB, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
	rec = s.doJSON(http.MethodGet, "/expenses/1", tokenB, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
	rec = s.doJSON(http.MethodDelete, "/expenses/1", tokenB, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	// Creating an expense against A's category is rejected before insert
	rec = s.doJSON(http.MethodPost, "/expenses", tokenB, map[string]any{
		"amount": "5.00", "category_id": cat.ID,
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	rec = s.doJSON(http.MethodGet, "/expenses", tokenB, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "[]\n", rec.Body.String())
}

func (s *RouterTestSuite) TestCategoryDeleteKeepsExpenses() {
	s.signup("a@x.com", "secret1")
	token := s.login("a@x.com", "secret1")

	rec := s.doJSON(http.MethodPost, "/categories", token, map[string]any{"name": "Food"})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var cat models.Category
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &cat))

	rec = s.doJSON(http.MethodPost, "/expenses", token, map[string]any{
		"amount": "10.00", "category_id": cat.ID,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var exp models.Expense
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &exp))

	rec = s.doJSON(http.MethodDelete, "/categories/1", token, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.doJSON(http.MethodGet, "/expenses/1", token, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var got models.Expense
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(s.T(), exp.ID, got.ID)
	assert.Nil(s.T(), got.CategoryID)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
