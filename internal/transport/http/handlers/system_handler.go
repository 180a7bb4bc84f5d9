package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/config"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/transport/http/dto"
)

type SystemHandler struct {
	service  ports.DependencyService
	packages config.PackagesConfig
	logger   *logger.Logger
}

func NewSystemHandler(service ports.DependencyService, packages config.PackagesConfig, logger *logger.Logger) *SystemHandler {
	return &SystemHandler{service: service, packages: packages, logger: logger}
}

func (h *SystemHandler) GetSystemInfo(c *fiber.Ctx) error {
	pythonVersion, pipVersion := h.service.SystemInfo(c.Context())
	return c.JSON(dto.SystemInfoResponse{
		PythonVersion: pythonVersion,
		PipVersion:    pipVersion,
	})
}

// GetCategories exposes the static classification lists so the UI can
// mark packages without re-deriving the policy.
func (h *SystemHandler) GetCategories(c *fiber.Ctx) error {
	return c.JSON(dto.CategoriesResponse{
		System:      h.packages.System,
		Core:        h.packages.Core,
		AIModel:     h.packages.AIModel,
		AppRequired: h.packages.AppRequired,
	})
}
