package main

import (
	"fmt"
	"time"

	"taskman/configs"
	v1 "taskman/internal/api/v1"
	"taskman/internal/config"
	"taskman/internal/middleware"
	"taskman/internal/repository"
	myws "taskman/internal/websocket"
	"taskman/pkg/database"
	"taskman/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Inisialisasi logger
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	// Load config
	cfg := configs.LoadConfig()
	if cfg.JWTSecret != "" {
		config.SecretKey = []byte(cfg.JWTSecret)
	}
	config.ClientURL = cfg.ClientURL
	if cfg.Env != "" {
		config.Env = cfg.Env
	}
	config.GoogleOAuth = &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	// Inisialisasi database
	config.DB = database.ConnectDB(cfg)
	defer config.DB.Close()

	logger.SystemLogger.Info("Database Connected")

	// Buat tabel jika belum ada
	repository.CreateTableIfNotExists(config.DB)

	// Inisialisasi Redis
	config.RedisClient = database.ConnectRedis(cfg)
	defer config.RedisClient.Close()

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.ClientURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Daftarkan route API
	v1.RegisterRoutes(app)

	// WebSocket untuk notifikasi perubahan task ke SPA
	hub := myws.DefaultHub
	go hub.Run()
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// Token dikirim lewat query param karena browser WebSocket
		// tidak bisa menambahkan header Authorization
		userID, _, err := middleware.ParseToken(c.Query("token"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid token",
				"success": false,
				"status":  401,
			})
		}
		c.Locals("userID", userID)
		return c.Next()
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		client := &myws.Client{
			UserID: c.Locals("userID").(int),
			Conn:   c,
		}
		hub.Register <- client
		defer func() {
			hub.Unregister <- client
		}()
		for {
			// Koneksi hanya untuk push dari server; pesan masuk diabaikan
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	logger.SystemLogger.Info("Application ready", zap.Int("port", cfg.Port))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
