package middleware

import (
	"fmt"
	"strings"
	"time"

	"taskman/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// ParseToken memverifikasi token JWT dan mengembalikan user ID beserta email.
// Dipakai oleh middleware HTTP dan juga oleh gate WebSocket.
func ParseToken(tokenString string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.SecretKey, nil
	})
	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("invalid token claims")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return 0, "", fmt.Errorf("token expired")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("invalid user ID in token")
	}
	email, ok := claims["email"].(string)
	if !ok {
		return 0, "", fmt.Errorf("invalid email in token")
	}
	return int(userID), email, nil
}

func UseToken(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "No token provided", "success": false, "status": 401})
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token format", "success": false, "status": 401})
	}
	userID, email, err := ParseToken(parts[1])
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token", "success": false, "status": 401})
	}
	c.Locals("userID", userID)
	c.Locals("email", email)
	return c.Next()
}
