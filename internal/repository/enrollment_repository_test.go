package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/edustack-api/internal/models"
)

func TestEnrollmentExistsActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	scope := testScope(t, "admin-1", models.RoleAdmin)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE school_id = $1 AND student_id = $2 AND section_id = $3 AND status = 'ENROLLED' LIMIT 1")).
		WithArgs("school-1", "stu-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), scope, "stu-1", "sec-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentExistsActiveMiss(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	scope := testScope(t, "admin-1", models.RoleAdmin)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'ENROLLED' LIMIT 1")).
		WithArgs("school-1", "stu-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.HasActiveEnrollment(context.Background(), scope, "stu-1", "sec-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateForcesSchool(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	scope := testScope(t, "stu-1", models.RoleStudent)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		SchoolID:  "other-school",
		StudentID: "stu-1",
		SectionID: "sec-1",
		Status:    models.EnrollmentEnrolled,
	}
	require.NoError(t, repo.Create(context.Background(), scope, enrollment))
	assert.Equal(t, "school-1", enrollment.SchoolID)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentUpdateStatusScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	scope := testScope(t, "admin-1", models.RoleAdmin)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $1 WHERE school_id = $2 AND id = $3")).
		WithArgs(string(models.EnrollmentDropped), "school-1", "enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), scope, "enr-1", models.EnrollmentDropped))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListStudentVisibility(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	scope := testScope(t, "stu-1", models.RoleStudent)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "section_id", "status", "enrolled_at", "student_name", "section_name", "subject_code"}).
		AddRow("enr-1", "school-1", "stu-1", "sec-1", string(models.EnrollmentEnrolled), now, "Ana Silva", "Calculus A", "MATH101")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.school_id = $1 AND e.student_id = $2 ORDER BY e.enrolled_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("school-1", "stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("school-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), scope, models.EnrollmentFilter{})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "MATH101", enrollments[0].SubjectCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
