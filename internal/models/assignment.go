package models

import "time"

// Assignment is graded work attached to a section.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	MaxScore    float64   `db:"max_score" json:"max_score"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter captures filtering criteria for listing assignments.
type AssignmentFilter struct {
	SectionID string
	Page      int
}
