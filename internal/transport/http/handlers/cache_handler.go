package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/transport/http/dto"
)

type CacheHandler struct {
	service ports.DependencyService
	logger  *logger.Logger
}

func NewCacheHandler(service ports.DependencyService, logger *logger.Logger) *CacheHandler {
	return &CacheHandler{service: service, logger: logger}
}

// Clean purges the pip download cache as a background task.
func (h *CacheHandler) Clean(c *fiber.Ctx) error {
	taskID, err := h.service.CleanCacheAsync()
	if err != nil {
		h.logger.Errorw("cache_clean_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "cache cleanup started",
		TaskID:  taskID,
	})
}

// Refresh sweeps the registry metadata cache. ?force=true drops every
// entry instead of only the expired ones.
func (h *CacheHandler) Refresh(c *fiber.Ctx) error {
	evicted, err := h.service.RefreshRegistryCache(c.Context(), c.QueryBool("force"))
	if err != nil {
		h.logger.Errorw("cache_refresh_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "registry cache refreshed",
		"evicted": evicted,
	})
}

func (h *CacheHandler) Info(c *fiber.Ctx) error {
	count, lastUpdate, err := h.service.RegistryCacheInfo(c.Context())
	if err != nil {
		h.logger.Errorw("cache_info_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(dto.CacheInfoResponse{
		Entries:    count,
		LastUpdate: lastUpdate,
	})
}
