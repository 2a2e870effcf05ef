package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

// actorFromContext returns the authenticated identity or writes a 401.
func actorFromContext(c *gin.Context) (models.Identity, bool) {
	actor, ok := middleware.Identity(c)
	if !ok || actor.ID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Identity{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return false
	}
	return true
}
