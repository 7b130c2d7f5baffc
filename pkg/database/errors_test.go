package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-registrar/pkg/config"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("create enrollment: %w", &pq.Error{Code: "23505", Constraint: "enrollments_student_section_key"})

	constraint, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "enrollments_student_section_key", constraint)

	_, ok = ForeignKeyViolation(err)
	assert.False(t, ok)
}

func TestForeignKeyViolation(t *testing.T) {
	constraint, ok := ForeignKeyViolation(&pq.Error{Code: "23503", Constraint: "sections_course_id_fkey"})
	assert.True(t, ok)
	assert.Equal(t, "sections_course_id_fkey", constraint)
}

func TestInvalidTextRepresentation(t *testing.T) {
	err := fmt.Errorf("find enrollment: %w", &pq.Error{Code: "22P02"})
	assert.True(t, InvalidTextRepresentation(err))
	assert.False(t, InvalidTextRepresentation(&pq.Error{Code: "23505"}))
	assert.False(t, InvalidTextRepresentation(errors.New("boom")))
	assert.False(t, InvalidTextRepresentation(nil))
}

func TestViolationIgnoresOtherErrors(t *testing.T) {
	_, ok := UniqueViolation(errors.New("connection reset"))
	assert.False(t, ok)
	_, ok = UniqueViolation(nil)
	assert.False(t, ok)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "registrar", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=registrar sslmode=disable", dsn)
}
