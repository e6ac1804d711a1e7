package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, subject string, roles []string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func invoke(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, error, echo.Context) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var captured echo.Context
	err := mw(func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, err, captured
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-123", []string{RoleDoctor}))

	_, err, c := invoke(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != "user-123" {
		t.Errorf("user id = %q", got)
	}
	if !HasRole(ctx, RoleDoctor) {
		t.Error("doctor role missing from context")
	}
	if HasRole(ctx, RoleAdmin) {
		t.Error("admin role granted without claim")
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err, _ := invoke(mw, req)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: []byte("other-key")})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-123", nil))

	_, err, _ := invoke(mw, req)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHasRole_AdminActsAsEveryRole(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "root", []string{RoleAdmin}))

	_, err, c := invoke(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !HasRole(c.Request().Context(), RoleDoctor) {
		t.Error("admin should satisfy doctor role checks")
	}
}

func TestDevAuthMiddleware_Defaults(t *testing.T) {
	mw := DevAuthMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err, c := invoke(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if UserIDFromContext(ctx) == "" {
		t.Error("dev middleware must supply a user id")
	}
	if !HasRole(ctx, RoleDoctor) {
		t.Error("dev middleware defaults to the doctor role")
	}
}

func TestDevAuthMiddleware_HeaderOverride(t *testing.T) {
	mw := DevAuthMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User", "11111111-1111-1111-1111-111111111111")
	req.Header.Set("X-Debug-Role", RolePatient)

	_, err, c := invoke(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("user id = %q", got)
	}
	if HasRole(ctx, RoleDoctor) {
		t.Error("patient override should drop the doctor role")
	}
}
