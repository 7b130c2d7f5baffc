package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
	"github.com/noah-isme/course-registrar/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor *models.Identity, req service.EnrollRequest) (*models.EnrollmentDetail, error)
	Drop(ctx context.Context, actor *models.Identity, enrollmentID string) error
	MyEnrollments(ctx context.Context, actor *models.Identity) ([]models.EnrollmentDetail, error)
	MyTimetable(ctx context.Context, actor *models.Identity, term string) ([]models.TimetableDay, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll in section
// @Description Students enroll themselves; admins must name the student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), identityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop enrollment
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	if err := h.enrollments.Drop(c.Request.Context(), identityFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyEnrollments godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/enrollments [get]
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	items, err := h.enrollments.MyEnrollments(c.Request.Context(), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MyTimetable godoc
// @Summary Weekly timetable of the caller
// @Tags Enrollments
// @Produce json
// @Param term query string false "Term"
// @Success 200 {object} response.Envelope
// @Router /me/timetable [get]
func (h *EnrollmentHandler) MyTimetable(c *gin.Context) {
	days, err := h.enrollments.MyTimetable(c.Request.Context(), identityFromContext(c), strings.TrimSpace(c.Query("term")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
