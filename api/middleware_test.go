package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

func authTestServer(cfg AuthConfig) *echo.Echo {
	e := echo.New()
	g := e.Group("/api/v1", AuthMiddleware(cfg))
	g.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	return e
}

func authRequest(e *echo.Echo, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	e := authTestServer(AuthConfig{})
	if code := authRequest(e, ""); code != http.StatusOK {
		t.Errorf("unconfigured auth returned %d, want 200", code)
	}
}

func TestAuthMiddlewareStaticToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	e := authTestServer(AuthConfig{TokenHash: string(hash)})

	if code := authRequest(e, "s3cret"); code != http.StatusOK {
		t.Errorf("valid token returned %d, want 200", code)
	}
	if code := authRequest(e, "wrong"); code != http.StatusUnauthorized {
		t.Errorf("wrong token returned %d, want 401", code)
	}
	if code := authRequest(e, ""); code != http.StatusUnauthorized {
		t.Errorf("missing token returned %d, want 401", code)
	}
}

func TestAuthMiddlewareJWT(t *testing.T) {
	const secret = "jwt-secret"
	e := authTestServer(AuthConfig{JWTSecret: secret})

	claims := jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	if code := authRequest(e, signed); code != http.StatusOK {
		t.Errorf("valid JWT returned %d, want 200", code)
	}

	badSig, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}
	if code := authRequest(e, badSig); code != http.StatusUnauthorized {
		t.Errorf("bad signature returned %d, want 401", code)
	}

	expired := jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(-time.Hour).Unix()}
	signedExpired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	if code := authRequest(e, signedExpired); code != http.StatusUnauthorized {
		t.Errorf("expired JWT returned %d, want 401", code)
	}
}
