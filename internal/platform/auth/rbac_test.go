package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(req *http.Request, roles ...string) *http.Request {
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	return req.WithContext(ctx)
}

func runRequireRole(t *testing.T, required string, roles ...string) error {
	t.Helper()
	e := echo.New()
	req := contextWithRoles(httptest.NewRequest(http.MethodGet, "/", nil), roles...)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return RequireRole(required)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
}

func TestRequireRole_Allows(t *testing.T) {
	if err := runRequireRole(t, RoleDoctor, RoleDoctor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_Denies(t *testing.T) {
	err := runRequireRole(t, RoleDoctor, RolePatient)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	if err := runRequireRole(t, RoleDoctor, RoleAdmin); err != nil {
		t.Fatalf("admin should pass any role gate, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	err := runRequireRole(t, RoleDoctor)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
