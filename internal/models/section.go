package models

import "time"

// Section is a scheduled offering of a subject taught by a professor.
type Section struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	ProfessorID string    `db:"professor_id" json:"professor_id"`
	Name        string    `db:"name" json:"name"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches a section with display fields for list responses.
type SectionDetail struct {
	Section
	SubjectCode   string `db:"subject_code" json:"subject_code"`
	SubjectName   string `db:"subject_name" json:"subject_name"`
	ProfessorName string `db:"professor_name" json:"professor_name"`
}

// SectionFilter captures filtering criteria for listing sections.
type SectionFilter struct {
	SubjectID string
	Search    string
	Page      int
}
