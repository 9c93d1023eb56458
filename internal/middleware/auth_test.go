package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskman/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenApp() *fiber.App {
	app := fiber.New()
	app.Get("/", UseToken, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("userID"),
			"email":   c.Locals("email"),
		})
	})
	return app
}

func mintToken(t *testing.T, userID int, email string, exp time.Time, key []byte) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     exp.Unix(),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestUseTokenMissingHeader(t *testing.T) {
	app := tokenApp()
	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUseTokenWrongScheme(t *testing.T) {
	app := tokenApp()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic abcdef")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUseTokenGarbage(t *testing.T) {
	app := tokenApp()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUseTokenExpired(t *testing.T) {
	app := tokenApp()
	token := mintToken(t, 7, "expired@example.com", time.Now().Add(-time.Hour), config.SecretKey)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUseTokenWrongKey(t *testing.T) {
	app := tokenApp()
	token := mintToken(t, 7, "forged@example.com", time.Now().Add(time.Hour), []byte("other-key"))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUseTokenValid(t *testing.T) {
	app := tokenApp()
	token := mintToken(t, 42, "user@example.com", time.Now().Add(time.Hour), config.SecretKey)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParseTokenClaims(t *testing.T) {
	token := mintToken(t, 42, "user@example.com", time.Now().Add(time.Hour), config.SecretKey)
	userID, email, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, "user@example.com", email)
}
