package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registrar/internal/middleware"
	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
	"github.com/noah-isme/course-registrar/pkg/response"
)

type sectionService interface {
	List(ctx context.Context, actor *models.Identity, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error)
	TeachingSections(ctx context.Context, actor *models.Identity, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error)
	Catalog(ctx context.Context, actor *models.Identity, filter models.SectionFilter) (*models.CatalogPage, bool, error)
	Get(ctx context.Context, actor *models.Identity, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, actor *models.Identity, req service.CreateSectionRequest) (*models.SectionDetail, error)
	Delete(ctx context.Context, actor *models.Identity, id string) error
	AddTimeslot(ctx context.Context, actor *models.Identity, sectionID string, req service.CreateTimeslotRequest) (*models.Timeslot, error)
	DeleteTimeslot(ctx context.Context, actor *models.Identity, id string) error
}

// SectionHandler exposes section, timeslot and catalog endpoints.
type SectionHandler struct {
	sections sectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections sectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

func sectionFilterFromQuery(c *gin.Context) models.SectionFilter {
	return models.SectionFilter{
		ListFilter: listFilterFromQuery(c),
		Term:       strings.TrimSpace(c.Query("term")),
		TeacherID:  strings.TrimSpace(c.Query("teacher_id")),
	}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param q query string false "Search by course code or name"
// @Param term query string false "Term"
// @Param teacher_id query string false "Teacher ID"
// @Param sort query string false "term|course|teacher|cap"
// @Param order query string false "asc|desc"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	sections, pagination, err := h.sections.List(c.Request.Context(), identityFromContext(c), sectionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// Teaching godoc
// @Summary List the caller's teaching sections
// @Tags Sections
// @Produce json
// @Param term query string false "Term"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teaching/sections [get]
func (h *SectionHandler) Teaching(c *gin.Context) {
	sections, pagination, err := h.sections.TeachingSections(c.Request.Context(), identityFromContext(c), sectionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// Catalog godoc
// @Summary Student section catalog
// @Description Sections open for enrollment with seat counts and the caller's enrolled section ids
// @Tags Catalog
// @Produce json
// @Param q query string false "Search by course code or name"
// @Param term query string false "Term"
// @Param sort query string false "course|teacher|cap"
// @Param order query string false "asc|desc"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalog/sections [get]
func (h *SectionHandler) Catalog(c *gin.Context) {
	start := time.Now()
	page, cacheHit, err := h.sections.Catalog(c.Request.Context(), identityFromContext(c), sectionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, page, &page.Pagination, meta)
}

// Get godoc
// @Summary Get section detail
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Create godoc
// @Summary Create section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), identityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Delete godoc
// @Summary Delete section
// @Description Removes the section with its timeslots, enrollments and assessments
// @Tags Sections
// @Param id path string true "Section ID"
// @Success 204
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	if err := h.sections.Delete(c.Request.Context(), identityFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddTimeslot godoc
// @Summary Add timeslot to section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.CreateTimeslotRequest true "Timeslot payload"
// @Success 201 {object} response.Envelope
// @Router /sections/{id}/timeslots [post]
func (h *SectionHandler) AddTimeslot(c *gin.Context) {
	var req service.CreateTimeslotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.sections.AddTimeslot(c.Request.Context(), identityFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// DeleteTimeslot godoc
// @Summary Delete timeslot
// @Tags Sections
// @Param id path string true "Timeslot ID"
// @Success 204
// @Router /timeslots/{id} [delete]
func (h *SectionHandler) DeleteTimeslot(c *gin.Context) {
	if err := h.sections.DeleteTimeslot(c.Request.Context(), identityFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
