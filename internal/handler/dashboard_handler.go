package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, actor models.Identity) (*dto.StudentDashboardResponse, bool, error)
	Teacher(ctx context.Context, actor models.Identity) (*dto.TeacherDashboardResponse, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Dashboard for the caller's role
// @Description Students receive enrolled courses, progress summary, streak and achievements; teachers receive per-course stats.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if actor.IsTeacher() {
		summary, err := h.service.Teacher(c.Request.Context(), actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
		return
	}

	summary, cacheHit, err := h.service.Student(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}
