package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/pkg/response"
)

type storeRefresher interface {
	Refresh(ctx context.Context) (bool, error)
	Version() uint64
}

type cacheInvalidator interface {
	InvalidateDashboards(ctx context.Context) error
}

// StoreHandler exposes manual store maintenance.
type StoreHandler struct {
	store  storeRefresher
	cache  cacheInvalidator
	logger *zap.Logger
}

// NewStoreHandler constructs a store handler; cache may be nil.
func NewStoreHandler(store storeRefresher, cache cacheInvalidator, logger *zap.Logger) *StoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreHandler{store: store, cache: cache, logger: logger}
}

// Refresh godoc
// @Summary Reload collections from durable storage
// @Tags Store
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /store/refresh [post]
func (h *StoreHandler) Refresh(c *gin.Context) {
	changed, err := h.store.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if changed && h.cache != nil {
		if err := h.cache.InvalidateDashboards(c.Request.Context()); err != nil {
			h.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}
	response.JSON(c, http.StatusOK, gin.H{"changed": changed, "version": h.store.Version()}, nil)
}
