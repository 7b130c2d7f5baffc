package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/middleware"
	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type enrollmentServiceMock struct {
	enrollResp  *models.EnrollmentDetail
	enrollErr   error
	dropErr     error
	days        []models.TimetableDay
	lastActor   *models.Identity
	lastReq     service.EnrollRequest
	lastTerm    string
	lastDropped string
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, actor *models.Identity, req service.EnrollRequest) (*models.EnrollmentDetail, error) {
	m.lastActor = actor
	m.lastReq = req
	return m.enrollResp, m.enrollErr
}

func (m *enrollmentServiceMock) Drop(ctx context.Context, actor *models.Identity, enrollmentID string) error {
	m.lastActor = actor
	m.lastDropped = enrollmentID
	return m.dropErr
}

func (m *enrollmentServiceMock) MyEnrollments(ctx context.Context, actor *models.Identity) ([]models.EnrollmentDetail, error) {
	m.lastActor = actor
	return nil, nil
}

func (m *enrollmentServiceMock) MyTimetable(ctx context.Context, actor *models.Identity, term string) ([]models.TimetableDay, error) {
	m.lastActor = actor
	m.lastTerm = term
	return m.days, nil
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Username: "S2025001", Role: models.RoleStudent, StudentID: "stu-1"}
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	mockSvc := &enrollmentServiceMock{enrollResp: &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: "enr-1", SectionID: "sec-1"}}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments", []byte(`{"section_id":"sec-1"}`), studentClaims())
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sec-1", mockSvc.lastReq.SectionID)
	require.NotNil(t, mockSvc.lastActor)
	assert.Equal(t, "stu-1", mockSvc.lastActor.StudentID)
}

func TestEnrollmentHandlerScheduleConflictCarriesDetails(t *testing.T) {
	conflict := &service.ScheduleConflict{SectionID: "sec-9", CourseCode: "CS101", CourseName: "Algorithms", Weekday: 3}
	mockSvc := &enrollmentServiceMock{
		enrollErr: appErrors.WithDetails(appErrors.ErrScheduleConflict, "conflicts with enrolled course Algorithms (CS101)", conflict),
	}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments", []byte(`{"section_id":"sec-1"}`), studentClaims())
	handler.Enroll(c)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeEnvelope(t, w)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "SCHEDULE_CONFLICT", errBody["code"])
	details := errBody["details"].(map[string]interface{})
	assert.Equal(t, "CS101", details["course_code"])
}

func TestEnrollmentHandlerEnrollInvalidBody(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments", []byte(`{"section_id":`), studentClaims())
	handler.Enroll(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.lastActor)
}

func TestEnrollmentHandlerDropForbidden(t *testing.T) {
	mockSvc := &enrollmentServiceMock{dropErr: appErrors.ErrForbidden}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodDelete, "/enrollments/enr-2", nil, studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "enr-2"}}
	handler.Drop(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "enr-2", mockSvc.lastDropped)
}

func TestEnrollmentHandlerDropWithoutClaimsPassesNilIdentity(t *testing.T) {
	mockSvc := &enrollmentServiceMock{dropErr: appErrors.ErrForbidden}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodDelete, "/enrollments/enr-2", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-2"}}
	handler.Drop(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, mockSvc.lastActor)
}

func TestEnrollmentHandlerTimetableTerm(t *testing.T) {
	mockSvc := &enrollmentServiceMock{days: []models.TimetableDay{{Weekday: 1}}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/me/timetable?term=2025S", nil, studentClaims())
	handler.MyTimetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025S", mockSvc.lastTerm)
}
