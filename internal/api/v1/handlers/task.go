package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskman/internal/config"
	"taskman/internal/models"
	ws "taskman/internal/websocket"
	"taskman/pkg/logger"
	"taskman/pkg/report"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Task handlers

const taskColumns = "id, created_by, title, description, deadline, assigned_to, status, created_at, updated_at"

// TaskRequest adalah skema tunggal untuk create dan update task.
// Update bersifat full-field replace, jadi semua field wajib dikirim ulang.
// Deadline diterima sebagai string supaya tanggal yang tidak valid bisa
// dilaporkan sebagai error per field, bukan "Bad request" generik.
type TaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Deadline    string `json:"deadline" validate:"required"`
	AssignedTo  string `json:"assigned_to" validate:"required"`
	Status      string `json:"status"`
}

// deadlineFieldError adalah pesan per field untuk deadline yang tidak valid.
var deadlineFieldError = []fiber.Map{{
	"field":   "Deadline",
	"message": "Valid deadline date is required",
}}

// validStatus is a function to validate the status of a task
// it will return true if the status is one of the following:
// - Pending
// - In Progress
// - Done
// and false otherwise
func validStatus(status string) bool {
	switch status {
	case models.StatusPending, models.StatusInProgress, models.StatusDone:
		return true
	default:
		return false
	}
}

// isOwner memeriksa apakah task hanya diakses oleh pembuatnya.
func isOwner(createdBy, userID int) bool {
	return createdBy == userID
}

// validationErrors mengubah error dari validator menjadi pesan per field.
func validationErrors(err error) []fiber.Map {
	var out []fiber.Map
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			msg := fmt.Sprintf("%s is invalid", fe.Field())
			if fe.Tag() == "required" {
				msg = fmt.Sprintf("%s is required", fe.Field())
			}
			out = append(out, fiber.Map{
				"field":   fe.Field(),
				"message": msg,
			})
		}
	}
	return out
}

// scanTask membaca satu baris hasil query ke dalam models.Task.
func scanTask(row interface{ Scan(...interface{}) error }, task *models.Task) error {
	return row.Scan(&task.ID, &task.CreatedBy, &task.Title, &task.Description,
		&task.Deadline, &task.AssignedTo, &task.Status, &task.CreatedAt, &task.UpdatedAt)
}

// cacheTask menyimpan task di Redis selama 1 jam.
func cacheTask(task models.Task) {
	cacheKey := fmt.Sprintf("task:%d", task.ID)
	taskJSON, err := json.Marshal(task)
	if err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, taskJSON, time.Hour)
	}
}

// CreateTask membuat task baru dengan pemilik dari identitas request.
func CreateTask(c *fiber.Ctx) error {
	// ambil user ID dari locals
	userID := c.Locals("userID").(int)

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		// kembalikan error 400 jika inputan tidak valid
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// status default Pending jika tidak dikirim
	if req.Status == "" {
		req.Status = models.StatusPending
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  validationErrors(err),
			"success": false,
			"status":  400,
		})
	}

	// validasi status, hanya boleh berisi: Pending, In Progress, Done
	if !validStatus(req.Status) {
		logger.ErrorLogger.Error("Invalid status in create task")
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid status",
			"success": false,
			"status":  400,
		})
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		logger.ErrorLogger.Error("Invalid deadline in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  deadlineFieldError,
			"success": false,
			"status":  400,
		})
	}

	// eksekusi query untuk membuat task baru di database,
	// created_by diisi dari identitas request dan tidak pernah berubah
	var task models.Task
	err = scanTask(config.DB.QueryRow(
		"INSERT INTO tasks (created_by, title, description, deadline, assigned_to, status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+taskColumns,
		userID, req.Title, req.Description, deadline, req.AssignedTo, req.Status,
	), &task)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
			"success": false,
			"status":  500,
		})
	}

	ws.Publish("created", task)

	logger.AuditLogger.Info("Task created successfully", zap.Int("task_id", task.ID), zap.Int("user_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created successfully",
		"success": true,
		"status":  201,
		"data":    task,
	})
}

// ListTasks mengambil task milik user dengan filter, pencarian, dan sorting.
func ListTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	// semua query task selalu dibatasi ke pemiliknya
	query := "SELECT " + taskColumns + " FROM tasks WHERE created_by = $1"
	args := []interface{}{userID}

	// pencarian substring (case-insensitive) di title, description, assigned_to
	if search := c.Query("search"); search != "" {
		p := fmt.Sprintf("$%d", len(args)+1)
		query += fmt.Sprintf(" AND (title ILIKE %s OR description ILIKE %s OR assigned_to ILIKE %s)", p, p, p)
		args = append(args, "%"+search+"%")
	}

	// filter status, diabaikan jika bukan nilai enum yang valid
	if status := c.Query("status"); validStatus(status) {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
	}

	// sorting: hanya title atau deadline; default terbaru dulu
	orderBy := "created_at DESC"
	if sortBy := c.Query("sortBy"); sortBy != "" {
		field := "title"
		if sortBy == "deadline" {
			field = "deadline"
		}
		direction := "ASC"
		if c.Query("sortOrder") == "desc" {
			direction = "DESC"
		}
		orderBy = field + " " + direction
	}
	query += " ORDER BY " + orderBy

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := scanTask(rows, &task); err != nil {
			logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning tasks",
				"success": false,
				"status":  500,
			})
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over tasks",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Tasks fetched successfully", zap.Int("user_id", userID), zap.Int("count", len(tasks)))
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  200,
		"count":   len(tasks),
		"data":    tasks,
	})
}

// GetTask mengambil satu task berdasarkan ID.
func GetTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	// Coba ambil data task dari cache Redis
	cacheKey := fmt.Sprintf("task:%d", taskID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var task models.Task
		if err = json.Unmarshal([]byte(cached), &task); err == nil {
			// Guard kepemilikan tetap berlaku untuk cache hit
			if !isOwner(task.CreatedBy, userID) {
				logger.SecurityLogger.Warn("Forbidden task access", zap.Int("user_id", userID), zap.Int("task_id", taskID))
				return c.Status(403).JSON(fiber.Map{
					"message": "Not authorized to access this task",
					"success": false,
					"status":  403,
				})
			}

			logger.AuditLogger.Info("Task found (from cache)", zap.Int("task_id", taskID))
			return c.JSON(fiber.Map{
				"message": "Task found (from cache)",
				"success": true,
				"status":  200,
				"data":    task,
			})
		}
	}

	var task models.Task
	err = scanTask(config.DB.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", taskID), &task)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task",
			"success": false,
			"status":  500,
		})
	}

	// Periksa apakah user memiliki izin untuk melihat task ini
	if !isOwner(task.CreatedBy, userID) {
		logger.SecurityLogger.Warn("Forbidden task access", zap.Int("user_id", userID), zap.Int("task_id", taskID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Not authorized to access this task",
			"success": false,
			"status":  403,
		})
	}

	cacheTask(task)

	logger.AuditLogger.Info("Task found", zap.Int("task_id", taskID))
	return c.JSON(fiber.Map{
		"message": "Task found",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

// UpdateTask mengganti seluruh field task (kecuali pemilik dan created_at).
func UpdateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	// validasi bentuk input dulu (400), baru eksistensi (404) dan kepemilikan (403)
	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if req.Status == "" {
		req.Status = models.StatusPending
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  validationErrors(err),
			"success": false,
			"status":  400,
		})
	}

	if !validStatus(req.Status) {
		logger.ErrorLogger.Error("Invalid status in update task")
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid status",
			"success": false,
			"status":  400,
		})
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		logger.ErrorLogger.Error("Invalid deadline in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  deadlineFieldError,
			"success": false,
			"status":  400,
		})
	}

	var createdBy int
	err = config.DB.QueryRow("SELECT created_by FROM tasks WHERE id = $1", taskID).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task",
			"success": false,
			"status":  500,
		})
	}
	if !isOwner(createdBy, userID) {
		logger.SecurityLogger.Warn("Forbidden task update", zap.Int("user_id", userID), zap.Int("task_id", taskID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Not authorized to update this task",
			"success": false,
			"status":  403,
		})
	}

	// updated_at disegarkan di sisi database; created_by/created_at tidak disentuh
	var task models.Task
	err = scanTask(config.DB.QueryRow(`
		UPDATE tasks
		SET title = $1, description = $2, deadline = $3, assigned_to = $4, status = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING `+taskColumns,
		req.Title, req.Description, deadline, req.AssignedTo, req.Status, taskID,
	), &task)
	if err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating task",
			"success": false,
			"status":  500,
		})
	}

	// Perbarui cache Redis untuk task ini
	cacheKey := fmt.Sprintf("task:%d", taskID)
	config.RedisClient.Del(config.Ctx, cacheKey)
	cacheTask(task)

	ws.Publish("updated", task)

	logger.AuditLogger.Info("Task updated", zap.Int("task_id", taskID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Task updated successfully",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

// DeleteTask menghapus task berdasarkan ID.
func DeleteTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	var task models.Task
	err = scanTask(config.DB.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", taskID), &task)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task",
			"success": false,
			"status":  500,
		})
	}

	if !isOwner(task.CreatedBy, userID) {
		logger.SecurityLogger.Warn("Forbidden task delete", zap.Int("user_id", userID), zap.Int("task_id", taskID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Not authorized to delete this task",
			"success": false,
			"status":  403,
		})
	}

	if _, err := config.DB.Exec("DELETE FROM tasks WHERE id = $1", taskID); err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
			"success": false,
			"status":  500,
		})
	}

	// Hapus cache Redis untuk task ini
	cacheKey := fmt.Sprintf("task:%d", taskID)
	config.RedisClient.Del(config.Ctx, cacheKey)

	ws.Publish("deleted", task)

	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", taskID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Task deleted successfully",
		"success": true,
		"status":  200,
	})
}

// TaskStats mengembalikan jumlah task per status dan deadline terdekat
// (task belum Done dengan deadline dalam 7 hari ke depan, maksimal 5).
func TaskStats(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	var pending, inProgress, done int
	err := config.DB.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'Pending'),
			COUNT(*) FILTER (WHERE status = 'In Progress'),
			COUNT(*) FILTER (WHERE status = 'Done')
		FROM tasks WHERE created_by = $1`,
		userID).Scan(&pending, &inProgress, &done)
	if err != nil {
		logger.ErrorLogger.Error("Error counting tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task statistics",
			"success": false,
			"status":  500,
		})
	}

	now := time.Now()
	rows, err := config.DB.Query(`
		SELECT `+taskColumns+` FROM tasks
		WHERE created_by = $1 AND status <> 'Done' AND deadline >= $2 AND deadline <= $3
		ORDER BY deadline ASC
		LIMIT 5`,
		userID, now, now.AddDate(0, 0, 7))
	if err != nil {
		logger.ErrorLogger.Error("Error fetching upcoming deadlines", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task statistics",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	upcoming := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := scanTask(rows, &task); err != nil {
			logger.ErrorLogger.Error("Error scanning upcoming deadlines", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching task statistics",
				"success": false,
				"status":  500,
			})
		}
		upcoming = append(upcoming, task)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over upcoming deadlines", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching task statistics",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Task statistics fetched", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Task statistics fetched successfully",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"total":             pending + inProgress + done,
			"pending":           pending,
			"inProgress":        inProgress,
			"done":              done,
			"upcomingDeadlines": upcoming,
		},
	})
}

// TaskReport merender daftar task milik user menjadi dokumen PDF.
func TaskReport(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	var user models.User
	err := config.DB.QueryRow(
		"SELECT id, google_id, name, email, created_at, updated_at FROM users WHERE id = $1",
		userID).Scan(&user.ID, &user.GoogleID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching user for report", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating PDF report",
			"success": false,
			"status":  500,
		})
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE created_by = $1"
	args := []interface{}{userID}
	if status := c.Query("status"); validStatus(status) {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY deadline ASC"

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks for report", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating PDF report",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		if err := scanTask(rows, &task); err != nil {
			logger.ErrorLogger.Error("Error scanning tasks for report", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error generating PDF report",
				"success": false,
				"status":  500,
			})
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks for report", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating PDF report",
			"success": false,
			"status":  500,
		})
	}

	pdfBytes, err := report.Generate(user, tasks, time.Now())
	if err != nil {
		logger.ErrorLogger.Error("Error rendering PDF report", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating PDF report",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("PDF report generated", zap.Int("user_id", userID), zap.Int("tasks", len(tasks)))
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=tasks-report-%d.pdf", time.Now().UnixMilli()))
	return c.Send(pdfBytes)
}
