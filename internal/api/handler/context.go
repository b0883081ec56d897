package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/corepass/hallpass/internal/api/middleware"
)

// ctxToken extracts the token identity injected by the Auth middleware. A
// missing token id means the request did not pass through Auth.
func ctxToken(c echo.Context) (tokenID string, expiresAt time.Time, err error) {
	tokenID, _ = c.Get(middleware.KeyTokenID).(string)
	if tokenID == "" {
		return "", time.Time{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	expiresAt, _ = c.Get(middleware.KeyTokenExp).(time.Time)
	return tokenID, expiresAt, nil
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
