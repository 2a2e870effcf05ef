package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/response"
)

type progressEngine interface {
	UpdateProgress(ctx context.Context, actor models.Identity, courseID string, patch models.ProgressPatch) (*models.ProgressRecord, error)
	CompleteLesson(ctx context.Context, actor models.Identity, courseID string) (*models.ProgressRecord, error)
	OverallProgress(ctx context.Context, studentID string) models.ProgressSummary
}

// ProgressHandler serves the student's progress endpoints.
type ProgressHandler struct {
	engine progressEngine
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(engine progressEngine) *ProgressHandler {
	return &ProgressHandler{engine: engine}
}

type progressView struct {
	models.ProgressRecord
	Percentage int `json:"percentage"`
}

// Update godoc
// @Summary Merge a progress patch for a course
// @Tags Progress
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body models.ProgressPatch true "Progress patch"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /progress/{courseId} [put]
func (h *ProgressHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var patch models.ProgressPatch
	if !bindJSON(c, &patch) {
		return
	}
	record, err := h.engine.UpdateProgress(c.Request.Context(), actor, c.Param("courseId"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progressView{ProgressRecord: *record, Percentage: record.Percentage()}, nil)
}

// CompleteLesson godoc
// @Summary Mark one more lesson as completed
// @Tags Progress
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /progress/{courseId}/lessons [post]
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	record, err := h.engine.CompleteLesson(c.Request.Context(), actor, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progressView{ProgressRecord: *record, Percentage: record.Percentage()}, nil)
}

// Overall godoc
// @Summary Aggregate progress across enrolled courses
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progress/overall [get]
func (h *ProgressHandler) Overall(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.engine.OverallProgress(c.Request.Context(), actor.ID), nil)
}
