package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/core/services"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/transport/http/dto"
)

type EnvironmentHandler struct {
	service ports.EnvironmentService
	logger  *logger.Logger
}

func NewEnvironmentHandler(service ports.EnvironmentService, logger *logger.Logger) *EnvironmentHandler {
	return &EnvironmentHandler{service: service, logger: logger}
}

func (h *EnvironmentHandler) List(c *fiber.Ctx) error {
	set, err := h.service.List(c.Context())
	if err != nil {
		h.logger.Errorw("environment_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(set)
}

func (h *EnvironmentHandler) Save(c *fiber.Ctx) error {
	var req dto.SaveEnvironmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if details := req.Validate(); len(details) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
	}

	env, err := h.service.Save(c.Context(), req.ToDomain())
	if err != nil {
		if errors.Is(err, services.ErrEnvInvalidPath) || errors.Is(err, services.ErrEnvProbeFailed) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("environment_save_failed", "path", req.Path, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(env)
}

func (h *EnvironmentHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEnvNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "environment not found",
			})
		case errors.Is(err, services.ErrEnvDeleteCurrent), errors.Is(err, services.ErrEnvIDRequired):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		default:
			h.logger.Errorw("environment_delete_failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
	}

	return c.JSON(dto.SuccessResponse{Message: "environment deleted"})
}

func (h *EnvironmentHandler) Switch(c *fiber.Ctx) error {
	var req dto.SwitchEnvironmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	env, err := h.service.Switch(c.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEnvNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "environment not found",
			})
		case errors.Is(err, services.ErrEnvInvalidPath), errors.Is(err, services.ErrEnvIDRequired):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		default:
			h.logger.Errorw("environment_switch_failed", "id", req.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
	}

	return c.JSON(env)
}

func (h *EnvironmentHandler) Discover(c *fiber.Ctx) error {
	found, err := h.service.Discover(c.Context())
	if err != nil {
		h.logger.Errorw("environment_discover_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(found)
}
