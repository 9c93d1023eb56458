package models

import (
	"time"
)

// Status task hanya boleh berisi salah satu dari tiga nilai berikut.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

type User struct {
	ID        int       `json:"id"`
	GoogleID  string    `json:"google_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Task struct {
	ID          int       `json:"id"`
	CreatedBy   int       `json:"created_by"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	AssignedTo  string    `json:"assigned_to"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
