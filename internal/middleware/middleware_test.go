package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/winehouse/internal/auth"
	"github.com/suteetoe/winehouse/internal/fakeapi"
	"github.com/suteetoe/winehouse/internal/session"
	"github.com/suteetoe/winehouse/pkg/logger"
	"github.com/suteetoe/winehouse/pkg/validate"
)

func signed(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func newServer(t *testing.T) (*echo.Echo, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New(t)
	authSvc := auth.NewService(srv.API(nil), validate.New(), nil)
	reg := session.NewRegistry(srv.API(nil), authSvc.UserSummary, nil)

	e := echo.New()
	e.Use(RequestIDMiddleware, MetricsMiddleware, SessionMiddleware(reg))
	e.GET("/api/shop/whoami", func(c echo.Context) error {
		s, ok := GetSession(c)
		if !ok {
			return c.JSON(http.StatusOK, echo.Map{"user": ""})
		}
		return c.JSON(http.StatusOK, echo.Map{"user": s.Key})
	})
	e.GET("/api/shop/cart", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireSession)
	e.GET("/admin/api/dashboard", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireAdmin)
	return e, srv
}

func do(e *echo.Echo, path, token string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRequestID(t *testing.T) {
	e, _ := newServer(t)

	rec := do(e, "/api/shop/whoami", "")
	_, err := uuid.Parse(rec.Header().Get(logger.RequestIDKey))
	assert.NoError(t, err)

	id := uuid.New().String()
	rec = do(e, "/api/shop/whoami", "", logger.RequestIDKey, id)
	assert.Equal(t, id, rec.Header().Get(logger.RequestIDKey))

	rec = do(e, "/api/shop/whoami", "", logger.RequestIDKey, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(logger.RequestIDKey))
}

func TestSessionMiddleware(t *testing.T) {
	e, _ := newServer(t)

	rec := do(e, "/api/shop/whoami", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", body(t, rec)["user"])

	rec = do(e, "/api/shop/whoami", signed(t, "u-7", time.Now().Add(time.Hour)))
	assert.Equal(t, "u-7", body(t, rec)["user"])

	rec = do(e, "/api/shop/whoami", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body(t, rec)["redirectTo"])

	rec = do(e, "/api/shop/whoami", signed(t, "u-7", time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession(t *testing.T) {
	e, _ := newServer(t)

	rec := do(e, "/api/shop/cart", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body(t, rec)["redirectTo"])

	rec = do(e, "/api/shop/cart", signed(t, "u-1", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e, srv := newServer(t)
	token := signed(t, "u-1", time.Now().Add(time.Hour))

	rec := do(e, "/admin/api/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body(t, rec)["redirectTo"])

	rec = do(e, "/admin/api/dashboard", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, NotAuthorizedPath, body(t, rec)["redirectTo"])

	srv.SetRole("Admin")
	rec = do(e, "/admin/api/dashboard", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.RejectToken(token)
	rec = do(e, "/admin/api/dashboard", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, NotAuthorizedPath, body(t, rec)["redirectTo"])
}

func TestSessionMiddleware_TokenNotConfirmedByBackend(t *testing.T) {
	e, srv := newServer(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-key"))
	require.NoError(t, err)

	rec := do(e, "/api/shop/whoami", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body(t, rec)["redirectTo"])

	srv.Fail(http.MethodPost, "/api/auths/get-user-summary", http.StatusBadGateway)
	rec = do(e, "/api/shop/whoami", signed(t, "u-2", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, true, body(t, rec)["retryable"])
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}
