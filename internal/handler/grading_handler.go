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

type gradingService interface {
	AddAssessment(ctx context.Context, actor *models.Identity, sectionID string, req service.AssessmentRequest) (*models.Assessment, error)
	ListAssessments(ctx context.Context, actor *models.Identity, sectionID string) (*models.AssessmentList, error)
	DeleteAssessment(ctx context.Context, actor *models.Identity, assessmentID string) error
	RecordScores(ctx context.Context, actor *models.Identity, sectionID string, entries []models.ScoreEntry) (*models.ScoreRecordResult, error)
	ComputeTotal(ctx context.Context, actor *models.Identity, enrollmentID string) (float64, error)
	MyGrades(ctx context.Context, actor *models.Identity) ([]models.GradeReport, error)
	Gradebook(ctx context.Context, actor *models.Identity, sectionID string) (*models.Gradebook, error)
	ExportGradebook(ctx context.Context, actor *models.Identity, sectionID, format string) (*service.GradebookExport, error)
}

// RecordScoresRequest is the body of a bulk score submission.
type RecordScoresRequest struct {
	Scores []models.ScoreEntry `json:"scores" binding:"required"`
}

// TotalResponse reports the weighted total of one enrollment.
type TotalResponse struct {
	EnrollmentID string  `json:"enrollment_id"`
	TotalPercent float64 `json:"total_percent"`
}

// GradingHandler exposes assessment, gradebook and grade endpoints.
type GradingHandler struct {
	grading gradingService
}

// NewGradingHandler constructs GradingHandler.
func NewGradingHandler(grading gradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// ListAssessments godoc
// @Summary List section assessments
// @Tags Grading
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/assessments [get]
func (h *GradingHandler) ListAssessments(c *gin.Context) {
	list, err := h.grading.ListAssessments(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// AddAssessment godoc
// @Summary Add assessment to section
// @Description Weights of a section's assessments may not sum above 1
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sections/{id}/assessments [post]
func (h *GradingHandler) AddAssessment(c *gin.Context) {
	var req service.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.grading.AddAssessment(c.Request.Context(), identityFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// DeleteAssessment godoc
// @Summary Delete assessment
// @Tags Grading
// @Param id path string true "Assessment ID"
// @Success 204
// @Router /assessments/{id} [delete]
func (h *GradingHandler) DeleteAssessment(c *gin.Context) {
	if err := h.grading.DeleteAssessment(c.Request.Context(), identityFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Gradebook godoc
// @Summary Section gradebook
// @Tags Grading
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/gradebook [get]
func (h *GradingHandler) Gradebook(c *gin.Context) {
	book, err := h.grading.Gradebook(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// RecordScores godoc
// @Summary Record scores in bulk
// @Description Blank cells are skipped; rejected cells are returned as warnings
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body RecordScoresRequest true "Score cells"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/gradebook [put]
func (h *GradingHandler) RecordScores(c *gin.Context) {
	var req RecordScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.grading.RecordScores(c.Request.Context(), identityFromContext(c), c.Param("id"), req.Scores)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportGradebook godoc
// @Summary Export section gradebook
// @Tags Grading
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section ID"
// @Param format query string false "csv|pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /sections/{id}/gradebook/export [get]
func (h *GradingHandler) ExportGradebook(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	file, err := h.grading.ExportGradebook(c.Request.Context(), identityFromContext(c), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// Total godoc
// @Summary Weighted total of an enrollment
// @Tags Grading
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/total [get]
func (h *GradingHandler) Total(c *gin.Context) {
	enrollmentID := c.Param("id")
	total, err := h.grading.ComputeTotal(c.Request.Context(), identityFromContext(c), enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, TotalResponse{EnrollmentID: enrollmentID, TotalPercent: total}, nil)
}

// MyGrades godoc
// @Summary Grade reports of the caller
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/grades [get]
func (h *GradingHandler) MyGrades(c *gin.Context) {
	reports, err := h.grading.MyGrades(c.Request.Context(), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}
