package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", JWTProtected(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("user_role"),
		})
	})
	return app
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app := newProtectedApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSecret(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "user-1"})
	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsTokenWithoutSubject(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, testSecret, jwt.MapClaims{"foo": "bar"})
	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "user-1",
		"role": "Admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestExtractUserIDFromClaims(t *testing.T) {
	require.Equal(t, "user-1", extractUserIDFromClaims(jwt.MapClaims{"sub": "user-1"}))
	require.Equal(t, "user-2", extractUserIDFromClaims(jwt.MapClaims{"user_id": "user-2"}))
	require.Equal(t, "42", extractUserIDFromClaims(jwt.MapClaims{"id": float64(42)}))
	require.Empty(t, extractUserIDFromClaims(jwt.MapClaims{"id": float64(-1)}))
	require.Empty(t, extractUserIDFromClaims(jwt.MapClaims{}))
}

func TestNormalizeRole(t *testing.T) {
	require.Equal(t, "admin", normalizeRole(" Admin "))
	require.Equal(t, "teacher", normalizeRole([]interface{}{"Teacher", "student"}))
	require.Empty(t, normalizeRole(42))
}
