package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type authServiceMock struct {
	loginResp   *models.LoginResponse
	loginErr    error
	lastLogin   models.LoginRequest
	changeErr   error
	changeActor *models.Identity
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastLogin = req
	return m.loginResp, m.loginErr
}

func (m *authServiceMock) Me(ctx context.Context, actor *models.Identity) (*models.Identity, error) {
	return actor, nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, actor *models.Identity, req models.ChangePasswordRequest) error {
	m.changeActor = actor
	return m.changeErr
}

func TestAuthHandlerLogin(t *testing.T) {
	mockSvc := &authServiceMock{loginResp: &models.LoginResponse{AccessToken: "token", TokenType: "Bearer"}}
	handler := NewAuthHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/auth/login", []byte(`{"username":"admin","password":"secret"}`), nil)
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", mockSvc.lastLogin.Username)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "token", data["access_token"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})

	c, w := newTestContext(http.MethodPost, "/auth/login", []byte(`{"username":"admin","password":"wrong"}`), nil)
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_CREDENTIALS", errBody["code"])
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{})

	c, w := newTestContext(http.MethodGet, "/auth/me", nil, nil)
	handler.Me(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/auth/me", nil, studentClaims())
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "stu-1", data["student_id"])
}

func TestAuthHandlerChangePassword(t *testing.T) {
	mockSvc := &authServiceMock{}
	handler := NewAuthHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/auth/password", []byte(`{"old_password":"123456","new_password":"abcdef","confirm_password":"abcdef"}`), studentClaims())
	handler.ChangePassword(c)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, mockSvc.changeActor)
	assert.Equal(t, "user-1", mockSvc.changeActor.UserID)
}

func TestAuthHandlerChangePasswordInternalError(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{changeErr: errors.New("db down")})

	c, w := newTestContext(http.MethodPost, "/auth/password", []byte(`{"old_password":"123456","new_password":"abcdef","confirm_password":"abcdef"}`), studentClaims())
	handler.ChangePassword(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

type courseServiceMock struct {
	lastFilter models.CourseFilter
	createErr  error
	deleteErr  error
}

func (m *courseServiceMock) List(ctx context.Context, actor *models.Identity, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Course{{ID: "c1", Code: "CS101"}}, models.NewPagination(1, 10, 1), nil
}

func (m *courseServiceMock) Create(ctx context.Context, actor *models.Identity, req service.CreateCourseRequest) (*models.Course, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Course{ID: "c2", Code: req.Code, Name: req.Name}, nil
}

func (m *courseServiceMock) Update(ctx context.Context, actor *models.Identity, id string, req service.UpdateCourseRequest) (*models.Course, error) {
	return &models.Course{ID: id}, nil
}

func (m *courseServiceMock) Delete(ctx context.Context, actor *models.Identity, id string) error {
	return m.deleteErr
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-admin", Username: "admin", Role: models.RoleAdmin}
}

func TestCourseHandlerList(t *testing.T) {
	mockSvc := &courseServiceMock{}
	handler := NewCourseHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/courses?q=cs&sort=credits", nil, adminClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cs", mockSvc.lastFilter.Search)
	assert.Equal(t, "credits", mockSvc.lastFilter.SortBy)
	pagination := decodeEnvelope(t, w)["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total_count"])
}

func TestCourseHandlerCreateDuplicate(t *testing.T) {
	handler := NewCourseHandler(&courseServiceMock{createErr: appErrors.ErrDuplicateCode})

	c, w := newTestContext(http.MethodPost, "/courses", []byte(`{"code":"CS101","name":"Algorithms"}`), adminClaims())
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "DUPLICATE_CODE", errBody["code"])
}

func TestCourseHandlerDeleteConflict(t *testing.T) {
	handler := NewCourseHandler(&courseServiceMock{deleteErr: appErrors.Clone(appErrors.ErrConflict, "course still has sections")})

	c, w := newTestContext(http.MethodDelete, "/courses/c1", nil, adminClaims())
	handler.Delete(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, pingerStub{})
	c, w := newTestContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	handler = NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")})
	c, w = newTestContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newTestContext(http.MethodGet, "/metrics", nil, nil)
	handler.Prometheus(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
