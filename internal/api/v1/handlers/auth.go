package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"taskman/internal/config"
	"taskman/internal/models"
	"taskman/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Auth handlers

const (
	stateTTL     = 10 * time.Minute
	tokenTTL     = 30 * 24 * time.Hour
	userinfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	statePrefix  = "oauth_state:"
	authFailPath = "/login?error=auth_failed"
)

// newStateNonce membuat nonce acak untuk parameter state OAuth.
func newStateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateToken membuat JWT yang dipakai untuk autentikasi API berikutnya.
func generateToken(userID int, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(config.SecretKey)
}

// GoogleLogin mengalihkan user ke halaman consent Google.
func GoogleLogin(c *fiber.Ctx) error {
	state, err := newStateNonce()
	if err != nil {
		logger.ErrorLogger.Error("Error generating OAuth state", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error starting login",
			"success": false,
			"status":  500,
		})
	}

	// Simpan state di Redis supaya bisa diverifikasi saat callback
	if err := config.RedisClient.SetEX(config.Ctx, statePrefix+state, "1", stateTTL).Err(); err != nil {
		logger.ErrorLogger.Error("Error storing OAuth state", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error starting login",
			"success": false,
			"status":  500,
		})
	}

	return c.Redirect(config.GoogleOAuth.AuthCodeURL(state, oauth2.AccessTypeOnline), fiber.StatusTemporaryRedirect)
}

// GoogleCallback menukar authorization code menjadi profil Google,
// membuat (atau mencari) user, lalu mengalihkan ke SPA dengan token JWT.
func GoogleCallback(c *fiber.Ctx) error {
	failRedirect := config.ClientURL + authFailPath

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		logger.SecurityLogger.Warn("OAuth callback missing state or code")
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}

	// State harus ada di Redis dan hanya boleh dipakai sekali
	if err := config.RedisClient.Get(config.Ctx, statePrefix+state).Err(); err != nil {
		logger.SecurityLogger.Warn("Unknown OAuth state", zap.String("state", state))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}
	config.RedisClient.Del(config.Ctx, statePrefix+state)

	token, err := config.GoogleOAuth.Exchange(config.Ctx, code)
	if err != nil {
		logger.ErrorLogger.Error("OAuth code exchange failed", zap.Error(err))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}

	// Ambil profil user dari endpoint userinfo Google
	client := config.GoogleOAuth.Client(config.Ctx, token)
	resp, err := client.Get(userinfoURL)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching Google userinfo", zap.Error(err))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}
	defer resp.Body.Close()

	var profile struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil || profile.ID == "" {
		logger.ErrorLogger.Error("Error decoding Google userinfo", zap.Error(err))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}

	// Buat user pada login pertama, atau segarkan atribut profilnya.
	// Identitas eksternal (google_id) tidak pernah berubah.
	var user models.User
	err = config.DB.QueryRow(`
		INSERT INTO users (google_id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (google_id) DO UPDATE
			SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = CURRENT_TIMESTAMP
		RETURNING id, google_id, name, email, created_at, updated_at`,
		profile.ID, profile.Name, profile.Email,
	).Scan(&user.ID, &user.GoogleID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error upserting user", zap.Error(err))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}

	tokenString, err := generateToken(user.ID, user.Email)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}

	userData, err := json.Marshal(user)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding user data", zap.Error(err))
		return c.Redirect(failRedirect, fiber.StatusTemporaryRedirect)
	}

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID), zap.String("email", user.Email))
	redirect := fmt.Sprintf("%s/login?token=%s&userData=%s",
		config.ClientURL, url.QueryEscape(tokenString), url.QueryEscape(string(userData)))
	return c.Redirect(redirect, fiber.StatusTemporaryRedirect)
}

// CurrentUser mengembalikan data user yang sedang login.
func CurrentUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	var user models.User
	err := config.DB.QueryRow(
		"SELECT id, google_id, name, email, created_at, updated_at FROM users WHERE id = $1",
		userID).Scan(&user.ID, &user.GoogleID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("Token refers to unknown user", zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching user",
			"success": false,
			"status":  500,
		})
	}

	return c.JSON(fiber.Map{
		"message": "User fetched successfully",
		"success": true,
		"status":  200,
		"data":    user,
	})
}

// Logout menghapus cookie token. Token JWT sendiri stateless,
// jadi sisi server tidak menyimpan sesi yang perlu dihapus.
func Logout(c *fiber.Ctx) error {
	c.ClearCookie("token")
	logger.AuditLogger.Info("User logged out")
	return c.JSON(fiber.Map{
		"message": "Logged out",
		"success": true,
		"status":  200,
	})
}
