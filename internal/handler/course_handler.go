package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type courseReader interface {
	Courses(ctx context.Context, actor models.Identity) []models.Course
	Course(ctx context.Context, actor models.Identity, id string) (*models.Course, error)
	EnrolledCourses(ctx context.Context, actor models.Identity) []models.CourseWithProgress
}

type courseWriter interface {
	Create(ctx context.Context, actor models.Identity, req service.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, actor models.Identity, id string, req service.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, actor models.Identity, id string) error
}

type enrollmentEngine interface {
	Enroll(ctx context.Context, actor models.Identity, courseID string) (*models.Enrollment, error)
	Unenroll(ctx context.Context, studentID, courseID string) error
}

type reportRenderer interface {
	CourseProgress(ctx context.Context, actor models.Identity, courseID string, format dto.ReportFormat) (*dto.ReportFile, error)
}

// CourseHandler serves course, enrollment and report endpoints.
type CourseHandler struct {
	reader      courseReader
	writer      courseWriter
	enrollments enrollmentEngine
	reports     reportRenderer
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(reader courseReader, writer courseWriter, enrollments enrollmentEngine, reports reportRenderer) *CourseHandler {
	return &CourseHandler{reader: reader, writer: writer, enrollments: enrollments, reports: reports}
}

// List godoc
// @Summary List courses visible to the caller
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courses := h.reader.Courses(c.Request.Context(), actor)
	response.JSON(c, http.StatusOK, courses, &models.Pagination{Page: 1, PageSize: len(courses), TotalCount: len(courses)}, middleware.ResponseMeta(c))
}

// Get godoc
// @Summary Get course by id
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	course, err := h.reader.Course(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.writer.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.writer.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course with its assignments, enrollments and progress
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.writer.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enrolled godoc
// @Summary List the student's enrolled courses with progress
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/enrolled [get]
func (h *CourseHandler) Enrolled(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.reader.EnrolledCourses(c.Request.Context(), actor), nil)
}

// Enroll godoc
// @Summary Enroll the student in a course
// @Tags Enrollment
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Leave a course
// @Tags Enrollment
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id}/enroll [delete]
func (h *CourseHandler) Unenroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.enrollments.Unenroll(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Download the course progress report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /courses/{id}/report [get]
func (h *CourseHandler) Report(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	format := dto.ReportFormat(strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(dto.ReportFormatCSV)))))
	file, err := h.reports.CourseProgress(c.Request.Context(), actor, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
