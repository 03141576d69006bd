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

func TestSubmissionListStudentVisibility(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)
	scope := testScope(t, "stu-1", models.RoleStudent)

	// The student filter rides on top of the school constraint.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sub.school_id = $1 AND sub.student_id = $2 ORDER BY sub.submitted_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("school-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("school-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), scope, models.SubmissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionListProfessorVisibility(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)
	scope := testScope(t, "prof-1", models.RoleProfessor)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sub.school_id = $1 AND sec.professor_id = $2 ORDER BY sub.submitted_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("school-1", "prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("school-1", "prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), scope, models.SubmissionFilter{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionCreateForcesSchool(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)
	scope := testScope(t, "stu-1", models.RoleStudent)

	mock.ExpectExec("INSERT INTO submissions").WillReturnResult(sqlmock.NewResult(1, 1))

	submission := &models.Submission{
		SchoolID:     "other-school",
		AssignmentID: "a1",
		StudentID:    "stu-1",
		Status:       models.SubmissionSubmitted,
		Content:      "answer",
	}
	require.NoError(t, repo.Create(context.Background(), scope, submission))
	assert.Equal(t, "school-1", submission.SchoolID)
	assert.False(t, submission.SubmittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionGradeScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)
	scope := testScope(t, "prof-1", models.RoleProfessor)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = $1, score = $2, feedback = $3, graded_by = $4, graded_at = $5, updated_at = $6")).
		WithArgs(string(models.SubmissionGraded), 85.0, nil, "prof-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "school-1", "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	score := 85.0
	graderID := "prof-1"
	now := time.Now().UTC()
	submission := &models.Submission{
		ID:       "sub-1",
		Status:   models.SubmissionGraded,
		Score:    &score,
		GradedBy: &graderID,
		GradedAt: &now,
	}
	require.NoError(t, repo.Grade(context.Background(), scope, submission))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSheetScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)
	scope := testScope(t, "admin-1", models.RoleAdmin)

	rows := sqlmock.NewRows([]string{"student_name", "student_email", "assignment_title", "max_score", "score", "status"}).
		AddRow("Ana Silva", "ana@school.test", "Homework 1", 100.0, 92.5, "GRADED").
		AddRow("Ben Cole", "ben@school.test", "Homework 1", 100.0, nil, "SUBMITTED")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sub.school_id = $1 AND a.section_id = $2")).
		WithArgs("school-1", "sec-1").
		WillReturnRows(rows)

	sheet, err := repo.GradeSheet(context.Background(), scope, "sec-1")
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	require.NotNil(t, sheet[0].Score)
	assert.Equal(t, 92.5, *sheet[0].Score)
	assert.Nil(t, sheet[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
