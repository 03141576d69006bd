package models

import "time"

// SubmissionStatus enumerates submission lifecycle states.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionGraded    SubmissionStatus = "GRADED"
	SubmissionReturned  SubmissionStatus = "RETURNED"
)

// Submission is a student's answer to an assignment. One row exists per
// (assignment, student); resubmission updates the row until it is graded.
type Submission struct {
	ID           string           `db:"id" json:"id"`
	SchoolID     string           `db:"school_id" json:"school_id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Content      string           `db:"content" json:"content"`
	FileURL      *string          `db:"file_url" json:"file_url,omitempty"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
	Score        *float64         `db:"score" json:"score,omitempty"`
	Feedback     *string          `db:"feedback" json:"feedback,omitempty"`
	GradedBy     *string          `db:"graded_by" json:"graded_by,omitempty"`
	GradedAt     *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter captures filtering criteria for listing submissions.
type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	Status       *SubmissionStatus
	Page         int
}
