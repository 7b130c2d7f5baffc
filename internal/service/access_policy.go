package service

import (
	"fmt"

	"github.com/noah-isme/course-registrar/internal/models"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

// Authorize is the access gate every service operation calls first. It
// returns Forbidden unless actor holds one of the allowed roles.
func Authorize(actor *models.Identity, allowed ...models.UserRole) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrForbidden, "caller identity required")
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %q is not allowed to perform this operation", actor.Role))
}

// studentOf returns the student record linked to a student caller.
func studentOf(actor *models.Identity) (string, error) {
	if actor.StudentID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a student")
	}
	return actor.StudentID, nil
}

// authorizeSection allows admins, and teachers on their own sections.
func authorizeSection(actor *models.Identity, section *models.Section) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleTeacher && actor.TeacherID != "" && actor.TeacherID == section.TeacherID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "section is taught by another teacher")
}
