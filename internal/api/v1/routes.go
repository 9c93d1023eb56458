package v1

import (
	"taskman/internal/api/v1/handlers"
	"taskman/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth
	authRoutes := api.Group("/auth")
	authRoutes.Get("/google", handlers.GoogleLogin)
	authRoutes.Get("/google/callback", handlers.GoogleCallback)
	authRoutes.Get("/me", middleware.UseToken, handlers.CurrentUser)
	authRoutes.Get("/logout", handlers.Logout)

	// Task
	// Route statis harus terdaftar sebelum /:id
	taskRoutes := api.Group("/tasks", middleware.UseToken)
	taskRoutes.Get("/stats", handlers.TaskStats)
	taskRoutes.Get("/summary", handlers.TaskStats)
	taskRoutes.Get("/report", handlers.TaskReport)
	taskRoutes.Post("/", handlers.CreateTask)
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Put("/:id", handlers.UpdateTask)
	taskRoutes.Delete("/:id", handlers.DeleteTask)
}
