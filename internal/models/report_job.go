package models

import "time"

// ReportFormat enumerates grade-sheet output formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "CSV"
	ReportFormatPDF ReportFormat = "PDF"
)

// ReportStatus enumerates report job states.
type ReportStatus string

const (
	ReportPending    ReportStatus = "PENDING"
	ReportProcessing ReportStatus = "PROCESSING"
	ReportCompleted  ReportStatus = "COMPLETED"
	ReportFailed     ReportStatus = "FAILED"
)

// ReportJob tracks an asynchronous grade-sheet export for a section.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	SchoolID    string       `db:"school_id" json:"school_id"`
	SectionID   string       `db:"section_id" json:"section_id"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	Format      ReportFormat `db:"format" json:"format"`
	Status      ReportStatus `db:"status" json:"status"`
	FilePath    *string      `db:"file_path" json:"-"`
	Error       *string      `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}
