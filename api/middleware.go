package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig configures bearer authentication for mutating admin routes.
// With a TokenHash, the presented token must match the bcrypt hash; with a
// JWTSecret, an HS256-signed JWT is accepted instead. When both are empty
// the middleware passes everything through (development mode).
type AuthConfig struct {
	TokenHash string // bcrypt hash of the static admin token
	JWTSecret string // HS256 secret for admin JWTs
}

// Enabled reports whether any credential is configured.
func (c AuthConfig) Enabled() bool {
	return c.TokenHash != "" || c.JWTSecret != ""
}

// AuthMiddleware validates the Authorization header against the configured
// credentials.
func AuthMiddleware(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled() {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "bearer token required")
			}

			if cfg.JWTSecret != "" && validJWT(token, cfg.JWTSecret) {
				return next(c)
			}
			if cfg.TokenHash != "" &&
				bcrypt.CompareHashAndPassword([]byte(cfg.TokenHash), []byte(token)) == nil {
				return next(c)
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}
}

func validJWT(token, secret string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	return err == nil && parsed.Valid
}
