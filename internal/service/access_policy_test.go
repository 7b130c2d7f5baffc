package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-registrar/internal/models"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	admin := &models.Identity{UserID: "u1", Role: models.RoleAdmin}
	student := &models.Identity{UserID: "u2", Role: models.RoleStudent, StudentID: "s1"}

	assert.NoError(t, Authorize(admin, models.RoleAdmin))
	assert.NoError(t, Authorize(student, models.RoleAdmin, models.RoleStudent))

	err := Authorize(student, models.RoleAdmin, models.RoleTeacher)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = Authorize(nil, models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = Authorize(&models.Identity{Role: models.RoleAdmin}, models.RoleAdmin)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthorizeNoRolesAllowed(t *testing.T) {
	err := Authorize(&models.Identity{UserID: "u1", Role: models.RoleAdmin})
	assert.Error(t, err)
}

func TestAuthorizeSection(t *testing.T) {
	section := &models.Section{ID: "sec-1", TeacherID: "t1"}

	assert.NoError(t, authorizeSection(&models.Identity{UserID: "a", Role: models.RoleAdmin}, section))
	assert.NoError(t, authorizeSection(&models.Identity{UserID: "b", Role: models.RoleTeacher, TeacherID: "t1"}, section))
	assert.Error(t, authorizeSection(&models.Identity{UserID: "c", Role: models.RoleTeacher, TeacherID: "t2"}, section))
	assert.Error(t, authorizeSection(&models.Identity{UserID: "d", Role: models.RoleTeacher}, section))
	assert.Error(t, authorizeSection(&models.Identity{UserID: "e", Role: models.RoleStudent, StudentID: "t1"}, section))
}

func TestStudentOf(t *testing.T) {
	id, err := studentOf(&models.Identity{UserID: "u", Role: models.RoleStudent, StudentID: "s1"})
	assert.NoError(t, err)
	assert.Equal(t, "s1", id)

	_, err = studentOf(&models.Identity{UserID: "u", Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
