package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type gradingServiceMock struct {
	addErr      error
	lastReq     service.AssessmentRequest
	lastSection string
	lastEntries []models.ScoreEntry
	recordResp  *models.ScoreRecordResult
	total       float64
	totalErr    error
	exportResp  *service.GradebookExport
	exportErr   error
	lastFormat  string
}

func (m *gradingServiceMock) AddAssessment(ctx context.Context, actor *models.Identity, sectionID string, req service.AssessmentRequest) (*models.Assessment, error) {
	m.lastSection = sectionID
	m.lastReq = req
	if m.addErr != nil {
		return nil, m.addErr
	}
	return &models.Assessment{ID: "as-1", SectionID: sectionID, Title: req.Title, Weight: req.Weight, FullScore: req.FullScore}, nil
}

func (m *gradingServiceMock) ListAssessments(ctx context.Context, actor *models.Identity, sectionID string) (*models.AssessmentList, error) {
	return &models.AssessmentList{SectionID: sectionID}, nil
}

func (m *gradingServiceMock) DeleteAssessment(ctx context.Context, actor *models.Identity, assessmentID string) error {
	return nil
}

func (m *gradingServiceMock) RecordScores(ctx context.Context, actor *models.Identity, sectionID string, entries []models.ScoreEntry) (*models.ScoreRecordResult, error) {
	m.lastSection = sectionID
	m.lastEntries = entries
	return m.recordResp, nil
}

func (m *gradingServiceMock) ComputeTotal(ctx context.Context, actor *models.Identity, enrollmentID string) (float64, error) {
	return m.total, m.totalErr
}

func (m *gradingServiceMock) MyGrades(ctx context.Context, actor *models.Identity) ([]models.GradeReport, error) {
	return nil, nil
}

func (m *gradingServiceMock) Gradebook(ctx context.Context, actor *models.Identity, sectionID string) (*models.Gradebook, error) {
	return &models.Gradebook{}, nil
}

func (m *gradingServiceMock) ExportGradebook(ctx context.Context, actor *models.Identity, sectionID, format string) (*service.GradebookExport, error) {
	m.lastFormat = format
	return m.exportResp, m.exportErr
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-t1", Username: "T001", Role: models.RoleTeacher, TeacherID: "t1"}
}

func TestGradingHandlerAddAssessmentBudgetExceeded(t *testing.T) {
	mockSvc := &gradingServiceMock{addErr: appErrors.ErrWeightBudgetExceeded}
	handler := NewGradingHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/sections/sec-1/assessments", []byte(`{"title":"Final","weight":0.5,"full_score":100}`), teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.AddAssessment(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "sec-1", mockSvc.lastSection)
	assert.Equal(t, "Final", mockSvc.lastReq.Title)
	assert.InDelta(t, 0.5, mockSvc.lastReq.Weight, 1e-9)
}

func TestGradingHandlerRecordScoresAcceptsMixedRawValues(t *testing.T) {
	mockSvc := &gradingServiceMock{recordResp: &models.ScoreRecordResult{Saved: 2, Skipped: 1}}
	handler := NewGradingHandler(mockSvc)

	body := `{"scores":[
		{"enrollment_id":"e1","assessment_id":"a1","raw":85},
		{"enrollment_id":"e2","assessment_id":"a1","raw":"72.5"},
		{"enrollment_id":"e3","assessment_id":"a1","raw":null}
	]}`
	c, w := newTestContext(http.MethodPut, "/sections/sec-1/gradebook", []byte(body), teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.RecordScores(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mockSvc.lastEntries, 3)
	assert.Equal(t, models.RawScore("85"), mockSvc.lastEntries[0].Raw)
	assert.Equal(t, models.RawScore("72.5"), mockSvc.lastEntries[1].Raw)
	assert.Equal(t, models.RawScore(""), mockSvc.lastEntries[2].Raw)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["saved"])
}

func TestGradingHandlerRecordScoresMissingBody(t *testing.T) {
	mockSvc := &gradingServiceMock{}
	handler := NewGradingHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/sections/sec-1/gradebook", []byte(`{}`), teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.RecordScores(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.lastEntries)
}

func TestGradingHandlerExportStreamsAttachment(t *testing.T) {
	mockSvc := &gradingServiceMock{exportResp: &service.GradebookExport{
		Filename:    "gradebook-CS101-2025S.csv",
		ContentType: "text/csv",
		Content:     []byte("Student No,Name\n"),
	}}
	handler := NewGradingHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/sections/sec-1/gradebook/export?format=CSV", nil, teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.ExportGradebook(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mockSvc.lastFormat)
	assert.Equal(t, "attachment; filename=gradebook-CS101-2025S.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student No,Name\n", w.Body.String())
}

func TestGradingHandlerExportRejectsUnknownFormat(t *testing.T) {
	mockSvc := &gradingServiceMock{exportErr: appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")}
	handler := NewGradingHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/sections/sec-1/gradebook/export?format=xlsx", nil, teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.ExportGradebook(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", mockSvc.lastFormat)
}

func TestGradingHandlerTotal(t *testing.T) {
	mockSvc := &gradingServiceMock{total: 68}
	handler := NewGradingHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/enrollments/enr-1/total", nil, studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	handler.Total(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "enr-1", data["enrollment_id"])
	assert.Equal(t, float64(68), data["total_percent"])
}
