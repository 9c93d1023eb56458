package config

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"
)

var (
	// Global dependency yang akan digunakan di seluruh aplikasi
	DB          *sql.DB
	SecretKey   = []byte("secret")
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client
	GoogleOAuth *oauth2.Config

	// ClientURL adalah alamat SPA yang menjadi tujuan redirect setelah login.
	ClientURL = "http://localhost:5173"
	// Env membedakan mode production (detail error disembunyikan).
	Env = "development"
)
