package models

import "time"

// EnrollmentStatus enumerates enrollment lifecycle states.
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment links a student to a section within the same school.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	SchoolID   string           `db:"school_id" json:"school_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches an enrollment with display fields.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	SectionName string `db:"section_name" json:"section_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}

// EnrollmentFilter captures filtering criteria for listing enrollments.
type EnrollmentFilter struct {
	SectionID string
	StudentID string
	Status    *EnrollmentStatus
	Page      int
}
