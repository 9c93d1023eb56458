package report

import (
	"testing"
	"time"

	"taskman/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() models.User {
	return models.User{
		ID:    1,
		Name:  "Test User",
		Email: "test@example.com",
	}
}

// TestGenerateEmpty: laporan tanpa task tetap harus valid
func TestGenerateEmpty(t *testing.T) {
	out, err := Generate(testUser(), nil, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

// TestGenerateWithTasks: laporan dengan task menghasilkan dokumen lebih besar
func TestGenerateWithTasks(t *testing.T) {
	now := time.Now()
	tasks := []models.Task{
		{
			ID:          1,
			CreatedBy:   1,
			Title:       "Write report",
			Description: "Quarterly report for the team",
			Deadline:    now.AddDate(0, 0, 3),
			AssignedTo:  "Alice",
			Status:      models.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          2,
			CreatedBy:   1,
			Title:       "Review pull request",
			Description: "Backend API changes",
			Deadline:    now.AddDate(0, 0, 5),
			AssignedTo:  "Bob",
			Status:      models.StatusInProgress,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	empty, err := Generate(testUser(), nil, now)
	require.NoError(t, err)

	out, err := Generate(testUser(), tasks, now)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
	assert.Greater(t, len(out), len(empty))
}

// TestGenerateLongDescription: deskripsi panjang tidak boleh membuat render gagal
func TestGenerateLongDescription(t *testing.T) {
	now := time.Now()
	long := ""
	for i := 0; i < 200; i++ {
		long += "lorem ipsum dolor sit amet "
	}
	tasks := []models.Task{{
		ID:          1,
		CreatedBy:   1,
		Title:       "Long one",
		Description: long,
		Deadline:    now,
		AssignedTo:  "Alice",
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}

	out, err := Generate(testUser(), tasks, now)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}
