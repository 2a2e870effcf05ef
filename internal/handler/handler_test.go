package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/internal/store"
)

var (
	teacher = models.Identity{ID: "T1", Role: models.RoleTeacher, Name: "Ada"}
	student = models.Identity{ID: "S1", Role: models.RoleStudent, Name: "Sam", Email: "sam@school.test"}
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type apiHarness struct {
	router *gin.Engine
	store  *store.Store
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(repository.NewMemorySlotRepository(), store.Options{})
	require.NoError(t, st.Load(context.Background()))

	queries := service.NewQueryService(st, nil)
	enrollments := service.NewEnrollmentService(st, nil, nil, nil)
	courses := NewCourseHandler(queries, service.NewCourseService(st, nil, nil), enrollments, service.NewReportService(st, nil))
	assignments := NewAssignmentHandler(queries, service.NewAssignmentService(st, nil, nil))
	progress := NewProgressHandler(enrollments)
	dashboard := NewDashboardHandler(service.NewDashboardService(service.DashboardServiceParams{Store: st}))
	storeHandler := NewStoreHandler(st, nil, nil)

	r := gin.New()
	r.Use(middleware.WithResponseMeta(st))
	api := r.Group("/api/v1")
	api.Use(fakeAuth())
	api.GET("/courses", courses.List)
	api.POST("/courses", courses.Create)
	api.GET("/courses/enrolled", courses.Enrolled)
	api.GET("/courses/:id", courses.Get)
	api.PUT("/courses/:id", courses.Update)
	api.DELETE("/courses/:id", courses.Delete)
	api.POST("/courses/:id/enroll", courses.Enroll)
	api.DELETE("/courses/:id/enroll", courses.Unenroll)
	api.GET("/courses/:id/report", courses.Report)
	api.GET("/assignments", assignments.List)
	api.POST("/assignments", assignments.Create)
	api.GET("/assignments/:id", assignments.Get)
	api.POST("/assignments/:id/submissions", assignments.Submit)
	api.PUT("/assignments/:id/submissions/:submissionId/grade", assignments.Grade)
	api.PUT("/progress/:courseId", progress.Update)
	api.POST("/progress/:courseId/lessons", progress.CompleteLesson)
	api.GET("/progress/overall", progress.Overall)
	api.GET("/dashboard", dashboard.Get)
	api.POST("/store/refresh", storeHandler.Refresh)
	return &apiHarness{router: r, store: st}
}

// fakeAuth reads the identity from test headers instead of a bearer token.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{
				UserID: id,
				Role:   models.UserRole(c.GetHeader("X-Test-Role")),
				Name:   c.GetHeader("X-Test-Name"),
				Email:  c.GetHeader("X-Test-Email"),
			})
		}
		c.Next()
	}
}

func (h *apiHarness) do(t *testing.T, actor *models.Identity, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Test-User", actor.ID)
		req.Header.Set("X-Test-Role", string(actor.Role))
		req.Header.Set("X-Test-Name", actor.Name)
		req.Header.Set("X-Test-Email", actor.Email)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}

func (h *apiHarness) createCourse(t *testing.T, lessons int, published bool) models.Course {
	t.Helper()
	rec := h.do(t, &teacher, http.MethodPost, "/api/v1/courses", map[string]interface{}{
		"title": "Go", "totalLessons": lessons, "published": published,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var course models.Course
	decode(t, rec, &course)
	return course
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, nil, http.MethodGet, "/api/v1/courses", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseLifecycle(t *testing.T) {
	h := newHarness(t)
	course := h.createCourse(t, 10, false)

	var listed []models.Course
	decode(t, h.do(t, &student, http.MethodGet, "/api/v1/courses", nil), &listed)
	assert.Empty(t, listed)

	rec := h.do(t, &teacher, http.MethodPut, "/api/v1/courses/"+course.ID, map[string]interface{}{"published": true})
	require.Equal(t, http.StatusOK, rec.Code)

	decode(t, h.do(t, &student, http.MethodGet, "/api/v1/courses", nil), &listed)
	require.Len(t, listed, 1)

	rec = h.do(t, &student, http.MethodPost, "/api/v1/courses", map[string]interface{}{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, &teacher, http.MethodPost, "/api/v1/courses", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, &teacher, http.MethodDelete, "/api/v1/courses/"+course.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, &teacher, http.MethodGet, "/api/v1/courses/"+course.ID, nil).Code)
}

func TestEnrollAndProgressFlow(t *testing.T) {
	h := newHarness(t)
	course := h.createCourse(t, 10, true)
	enrollPath := "/api/v1/courses/" + course.ID + "/enroll"

	rec := h.do(t, &student, http.MethodPost, enrollPath, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var enrollment models.Enrollment
	decode(t, rec, &enrollment)
	assert.Equal(t, 0, enrollment.Progress)

	rec = h.do(t, &student, http.MethodPost, enrollPath, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "ALREADY_ENROLLED", env.Error["code"])

	rec = h.do(t, &student, http.MethodPut, "/api/v1/progress/"+course.ID, map[string]interface{}{"completedLessons": 999})
	require.Equal(t, http.StatusOK, rec.Code)
	var progress struct {
		CompletedLessons int `json:"completedLessons"`
		Percentage       int `json:"percentage"`
	}
	decode(t, rec, &progress)
	assert.Equal(t, 10, progress.CompletedLessons)
	assert.Equal(t, 100, progress.Percentage)

	var summary models.ProgressSummary
	decode(t, h.do(t, &student, http.MethodGet, "/api/v1/progress/overall", nil), &summary)
	assert.Equal(t, 1, summary.CompletedCourses)

	var enrolled []models.CourseWithProgress
	decode(t, h.do(t, &student, http.MethodGet, "/api/v1/courses/enrolled", nil), &enrolled)
	require.Len(t, enrolled, 1)
	assert.Equal(t, 100, enrolled[0].Enrollment.Progress)

	rec = h.do(t, &student, http.MethodDelete, enrollPath, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, &student, http.MethodPost, "/api/v1/progress/"+course.ID+"/lessons", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env = decode(t, rec, nil)
	assert.Equal(t, "NOT_ENROLLED", env.Error["code"])
}

func TestAssignmentSubmissionAndGrading(t *testing.T) {
	h := newHarness(t)
	course := h.createCourse(t, 3, true)
	require.Equal(t, http.StatusCreated, h.do(t, &student, http.MethodPost, "/api/v1/courses/"+course.ID+"/enroll", nil).Code)

	rec := h.do(t, &teacher, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"title": "Essay", "courseId": course.ID, "dueDate": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"maxPoints": 10, "published": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var assignment models.Assignment
	decode(t, rec, &assignment)

	rec = h.do(t, &student, http.MethodPost, "/api/v1/assignments/"+assignment.ID+"/submissions", map[string]interface{}{"content": "my essay"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var submission models.Submission
	decode(t, rec, &submission)

	rec = h.do(t, &teacher, http.MethodPut, "/api/v1/assignments/"+assignment.ID+"/submissions/"+submission.ID+"/grade", map[string]interface{}{"grade": 9})
	require.Equal(t, http.StatusOK, rec.Code)

	var visible []models.Assignment
	decode(t, h.do(t, &student, http.MethodGet, "/api/v1/assignments", nil), &visible)
	require.Len(t, visible, 1)
	require.Len(t, visible[0].Submissions, 1)
	require.NotNil(t, visible[0].Submissions[0].Grade)
	assert.Equal(t, 9.0, *visible[0].Submissions[0].Grade)
}

func TestCourseReportDownload(t *testing.T) {
	h := newHarness(t)
	course := h.createCourse(t, 4, true)
	require.Equal(t, http.StatusCreated, h.do(t, &student, http.MethodPost, "/api/v1/courses/"+course.ID+"/enroll", nil).Code)

	rec := h.do(t, &teacher, http.MethodGet, "/api/v1/courses/"+course.ID+"/report?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment;")
	assert.Contains(t, rec.Body.String(), "Sam,sam@school.test")

	rec = h.do(t, &teacher, http.MethodGet, "/api/v1/courses/"+course.ID+"/report?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardByRole(t *testing.T) {
	h := newHarness(t)
	course := h.createCourse(t, 2, true)
	require.Equal(t, http.StatusCreated, h.do(t, &student, http.MethodPost, "/api/v1/courses/"+course.ID+"/enroll", nil).Code)

	rec := h.do(t, &student, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var studentView struct {
		StudentID string `json:"studentId"`
		Courses   []interface{}
	}
	env := decode(t, rec, &studentView)
	assert.Equal(t, student.ID, studentView.StudentID)
	assert.Len(t, studentView.Courses, 1)
	assert.Equal(t, false, env.Meta["cache_hit"])

	rec = h.do(t, &teacher, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var teacherView struct {
		TeacherID string `json:"teacherId"`
	}
	decode(t, rec, &teacherView)
	assert.Equal(t, teacher.ID, teacherView.TeacherID)
}

func TestStoreRefreshReportsVersion(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, &teacher, http.MethodPost, "/api/v1/store/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Changed bool   `json:"changed"`
		Version uint64 `json:"version"`
	}
	decode(t, rec, &body)
	assert.False(t, body.Changed)
	assert.Equal(t, h.store.Version(), body.Version)
}
