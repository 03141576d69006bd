package models

import "time"

// Subject is a course of study offered by a school. The code is unique
// within the school, not globally.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures filtering criteria for listing subjects.
type SubjectFilter struct {
	Search string
	Page   int
}
