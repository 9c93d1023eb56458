package test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	v1 "taskman/internal/api/v1"
	"taskman/internal/config"
	"taskman/internal/middleware"
	"taskman/internal/repository"
	"taskman/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestMain(m *testing.M) {
	// Set GO_ENV ke "test" supaya LoadConfig tidak mencetak log .env
	os.Setenv("GO_ENV", "test")

	logger.InitLoggers()
	defer logger.SyncLoggers()

	// Postgres dan Redis dijalankan lewat dockertest supaya test
	// tidak bergantung pada database yang sudah terpasang
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct dockertest pool: %v", err)
	}
	pool.MaxWait = 2 * time.Minute
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %v", err)
	}

	pgResource, err := pool.Run("postgres", "16-alpine", []string{
		"POSTGRES_PASSWORD=secret",
		"POSTGRES_DB=taskman_test",
	})
	if err != nil {
		log.Fatalf("Could not start postgres container: %v", err)
	}

	if err := pool.Retry(func() error {
		var err error
		config.DB, err = sql.Open("postgres", fmt.Sprintf(
			"host=localhost port=%s user=postgres password=secret dbname=taskman_test sslmode=disable",
			pgResource.GetPort("5432/tcp")))
		if err != nil {
			return err
		}
		return config.DB.Ping()
	}); err != nil {
		log.Fatalf("Could not connect to postgres container: %v", err)
	}

	redisResource, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		log.Fatalf("Could not start redis container: %v", err)
	}

	if err := pool.Retry(func() error {
		config.RedisClient = redis.NewClient(&redis.Options{
			Addr: "localhost:" + redisResource.GetPort("6379/tcp"),
		})
		return config.RedisClient.Ping(config.Ctx).Err()
	}); err != nil {
		log.Fatalf("Could not connect to redis container: %v", err)
	}

	// Konfigurasi OAuth dummy; test tidak pernah menukar code sungguhan
	config.GoogleOAuth = &oauth2.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:5000/api/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	repository.CreateTableIfNotExists(config.DB)

	code := m.Run()

	repository.DeleteAllTable(config.DB)
	config.DB.Close()
	config.RedisClient.Close()
	_ = pool.Purge(pgResource)
	_ = pool.Purge(redisResource)

	os.Exit(code)
}

// CreateTestApp menginisialisasi aplikasi Fiber dengan route yang akan di-test
func CreateTestApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.ErrorHandler())
	v1.RegisterRoutes(app)
	return app
}

// CreateTestUser menyisipkan user langsung ke database (seolah-olah sudah
// pernah login lewat Google) dan mengembalikan token beserta ID-nya.
func CreateTestUser(t *testing.T, name string) (string, int) {
	t.Helper()

	googleID := fmt.Sprintf("g-%s-%d", name, time.Now().UnixNano())
	email := googleID + "@example.com"
	var userID int
	err := config.DB.QueryRow(
		"INSERT INTO users (google_id, name, email) VALUES ($1, $2, $3) RETURNING id",
		googleID, name, email,
	).Scan(&userID)
	if err != nil {
		t.Fatalf("Error inserting test user: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(config.SecretKey)
	if err != nil {
		t.Fatalf("Error signing test token: %v", err)
	}
	return tokenString, userID
}

// CreateTestTask membuat task lewat endpoint POST /api/tasks dan
// mengembalikan response body yang sudah didecode.
func CreateTestTask(t *testing.T, app *fiber.App, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	taskJSON, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/tasks", bytes.NewReader(taskJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("CreateTask error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201 creating task, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Error decoding createTask response: %v", err)
	}
	return result
}

// taskID mengambil ID task dari response CreateTestTask.
func taskID(t *testing.T, created map[string]interface{}) int {
	t.Helper()
	data, ok := created["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data field in create task response")
	}
	id, ok := data["id"].(float64)
	if !ok {
		t.Fatalf("Expected task id in create task response")
	}
	return int(id)
}

// doJSON menjalankan request dengan token dan mendecode response JSON.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s error: %v", method, path, err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}
