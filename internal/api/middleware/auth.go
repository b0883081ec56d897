package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/corepass/hallpass/internal/core/ports"
	"github.com/corepass/hallpass/internal/core/service"
)

// Context keys set by Auth.
const (
	KeyUserID   = "user_id"
	KeyRole     = "role"
	KeyTokenID  = "token_id"
	KeyTokenExp = "token_exp"
)

// Auth validates the JWT, rejects signed-out tokens and injects the claims
// into the echo context. The user id is also placed on the request context
// so the session accessor can read it from services.
func Auth(jwtSecret string, revocations ports.TokenRevocations) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing subject")
			}
			jti, _ := claims["jti"].(string)

			if jti != "" && revocations != nil {
				revoked, err := revocations.IsRevoked(c.Request().Context(), jti)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "token check unavailable")
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			var exp time.Time
			if e, err := claims.GetExpirationTime(); err == nil && e != nil {
				exp = e.Time
			}

			c.Set(KeyUserID, sub)
			c.Set(KeyRole, claims["role"])
			c.Set(KeyTokenID, jti)
			c.Set(KeyTokenExp, exp)

			req := c.Request()
			c.SetRequest(req.WithContext(service.WithUserID(req.Context(), sub)))

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
