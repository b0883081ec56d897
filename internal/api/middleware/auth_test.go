package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/corepass/hallpass/internal/core/service"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) Revoke(context.Context, string, time.Time) error { return nil }

func (s stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "uid-1",
		"role": "student",
		"jti":  "token-1",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func runAuth(t *testing.T, header string, rev stubRevocations, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Auth("secret", rev)(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func mustNotRun(t *testing.T) echo.HandlerFunc {
	return func(echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	called := false
	rec := runAuth(t, "Bearer "+signToken(t, validClaims()), stubRevocations{}, func(c echo.Context) error {
		called = true
		if c.Get(KeyUserID) != "uid-1" {
			t.Fatalf("user id not set")
		}
		if c.Get(KeyRole) != "student" {
			t.Fatalf("role not set")
		}
		if c.Get(KeyTokenID) != "token-1" {
			t.Fatalf("token id not set")
		}
		if exp, _ := c.Get(KeyTokenExp).(time.Time); exp.IsZero() {
			t.Fatalf("token exp not set")
		}
		uid, ok := service.ClaimsSession{}.CurrentUserID(c.Request().Context())
		if !ok || uid != "uid-1" {
			t.Fatalf("request context missing user id: %q %v", uid, ok)
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	noSub := validClaims()
	delete(noSub, "sub")
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	cases := []struct {
		name   string
		header string
		rev    stubRevocations
		want   int
	}{
		{"missing header", "", stubRevocations{}, http.StatusUnauthorized},
		{"invalid header format", "Token abc", stubRevocations{}, http.StatusUnauthorized},
		{"invalid token", "Bearer not-a-token", stubRevocations{}, http.StatusUnauthorized},
		{"missing subject", "Bearer " + signToken(t, noSub), stubRevocations{}, http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, expired), stubRevocations{}, http.StatusUnauthorized},
		{"revoked", "Bearer " + signToken(t, validClaims()), stubRevocations{revoked: map[string]bool{"token-1": true}}, http.StatusUnauthorized},
		{"revocation store down", "Bearer " + signToken(t, validClaims()), stubRevocations{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runAuth(t, tc.header, tc.rev, mustNotRun(t))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
