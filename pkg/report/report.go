package report

import (
	"bytes"
	"fmt"
	"time"

	"taskman/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// Generate merender laporan PDF berisi daftar task milik seorang user.
// Fungsi ini murni formatting; urutan task mengikuti urutan slice.
func Generate(user models.User, tasks []models.Task, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Blok judul
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Task Management System - Tasks Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, "Generated on: "+generatedAt.Format("02 Jan 2006 15:04:05"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("User: %s (%s)", user.Name, user.Email), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total Tasks: %d", len(tasks)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for i, task := range tasks {
		if i > 0 {
			pdf.Ln(4)
		}

		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, fmt.Sprintf("Task %d: %s", i+1, task.Title), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, "Description: "+task.Description, "", "L", false)
		pdf.CellFormat(0, 5, "Assigned To: "+task.AssignedTo, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, "Status: "+task.Status, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, "Deadline: "+task.Deadline.Format("02 Jan 2006"), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, "Created: "+task.CreatedAt.Format("02 Jan 2006"), "", 1, "L", false, 0, "")

		// Garis pemisah antar task
		if i < len(tasks)-1 {
			pdf.Ln(2)
			pdf.SetDrawColor(170, 170, 170)
			pdf.SetLineWidth(0.3)
			y := pdf.GetY()
			pdf.Line(10, y, 200, y)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
