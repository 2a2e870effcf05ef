package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type assignmentReader interface {
	Assignments(ctx context.Context, actor models.Identity) []models.Assignment
	Assignment(ctx context.Context, actor models.Identity, id string) (*models.Assignment, error)
}

type assignmentWriter interface {
	Create(ctx context.Context, actor models.Identity, req service.CreateAssignmentRequest) (*models.Assignment, error)
	Update(ctx context.Context, actor models.Identity, id string, req service.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, actor models.Identity, id string) error
	Submit(ctx context.Context, actor models.Identity, assignmentID string, req service.SubmitAssignmentRequest) (*models.Submission, error)
	Grade(ctx context.Context, actor models.Identity, assignmentID, submissionID string, req service.GradeSubmissionRequest) (*models.Submission, error)
}

// AssignmentHandler serves assignment, submission and grading endpoints.
type AssignmentHandler struct {
	reader assignmentReader
	writer assignmentWriter
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(reader assignmentReader, writer assignmentWriter) *AssignmentHandler {
	return &AssignmentHandler{reader: reader, writer: writer}
}

// List godoc
// @Summary List assignments visible to the caller
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assignments := h.reader.Assignments(c.Request.Context(), actor)
	response.JSON(c, http.StatusOK, assignments, &models.Pagination{Page: 1, PageSize: len(assignments), TotalCount: len(assignments)}, middleware.ResponseMeta(c))
}

// Get godoc
// @Summary Get assignment by id
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assignment, err := h.reader.Assignment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.writer.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.UpdateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.writer.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
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

// Submit godoc
// @Summary Submit or resubmit an answer
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.SubmitAssignmentRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.SubmitAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.writer.Submit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body service.GradeSubmissionRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions/{submissionId}/grade [put]
func (h *AssignmentHandler) Grade(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.GradeSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.writer.Grade(c.Request.Context(), actor, c.Param("id"), c.Param("submissionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}
