package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestCourseRepositoryListWithSearch(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "credits", "created_at", "updated_at"}).
		AddRow("c1", "CS101", "Algorithms", 3, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, credits, created_at, updated_at FROM courses WHERE 1=1 AND (LOWER(code) LIKE $1 OR LOWER(name) LIKE $1) ORDER BY name DESC, id LIMIT 5 OFFSET 5")).
		WithArgs("%algo%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE 1=1 AND (LOWER(code) LIKE $1 OR LOWER(name) LIKE $1)")).
		WithArgs("%algo%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{ListFilter: models.ListFilter{
		Search: "Algo", SortBy: "name", SortOrder: "desc", Page: 2, PageSize: 5,
	}})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 6, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "CS101", "Algorithms", 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "CS101", Name: "Algorithms", Credits: 3}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
