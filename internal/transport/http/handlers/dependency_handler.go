package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/core/services"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/transport/http/dto"
)

type DependencyHandler struct {
	service ports.DependencyService
	logger  *logger.Logger
}

func NewDependencyHandler(service ports.DependencyService, logger *logger.Logger) *DependencyHandler {
	return &DependencyHandler{service: service, logger: logger}
}

func (h *DependencyHandler) List(c *fiber.Ctx) error {
	records, err := h.service.List(c.Context())
	if err != nil {
		h.logger.Errorw("dependency_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.logger.Infow("dependency_list_success", "count", len(records))
	return c.JSON(records)
}

func (h *DependencyHandler) Get(c *fiber.Ctx) error {
	name := c.Params("name")
	record, err := h.service.Get(c.Context(), name, c.QueryBool("refresh"))
	if err != nil {
		if errors.Is(err, services.ErrPackageNotInstalled) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "package not installed",
			})
		}
		if errors.Is(err, services.ErrPackageNameRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("dependency_get_failed", "package", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(record)
}

// Graph serves the requirement tree of one package as node/link data.
// ?depth controls how many levels are walked (default 2, capped).
func (h *DependencyHandler) Graph(c *fiber.Ctx) error {
	name := c.Params("name")
	graph, err := h.service.Graph(c.Context(), name, c.QueryInt("depth", 2))
	if err != nil {
		if errors.Is(err, services.ErrPackageNameRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("dependency_graph_failed", "package", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(graph)
}

func (h *DependencyHandler) Install(c *fiber.Ctx) error {
	req, ok := h.parseNameRequest(c)
	if !ok {
		return nil
	}

	taskID, err := h.service.InstallAsync(req.Name)
	if err != nil {
		return h.asyncError(c, "install", req.Name, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "installation started",
		TaskID:  taskID,
	})
}

// Uninstall is the one synchronous mutation: protected names are
// rejected outright, so there is no task to poll.
func (h *DependencyHandler) Uninstall(c *fiber.Ctx) error {
	req, ok := h.parseNameRequest(c)
	if !ok {
		return nil
	}

	message, err := h.service.Uninstall(c.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPackageProtected):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "cannot uninstall protected package " + req.Name,
			})
		case errors.Is(err, services.ErrPackageNotInstalled):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "package " + req.Name + " is not installed",
			})
		case errors.Is(err, services.ErrPackageNameRequired):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		default:
			h.logger.Errorw("dependency_uninstall_failed", "package", req.Name, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
	}

	return c.JSON(dto.SuccessResponse{Message: message})
}

func (h *DependencyHandler) Update(c *fiber.Ctx) error {
	req, ok := h.parseNameRequest(c)
	if !ok {
		return nil
	}

	taskID, err := h.service.UpdateAsync(req.Name)
	if err != nil {
		return h.asyncError(c, "update", req.Name, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "update started",
		TaskID:  taskID,
	})
}

func (h *DependencyHandler) SwitchVersion(c *fiber.Ctx) error {
	var req dto.SwitchVersionRequest
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

	taskID, err := h.service.SwitchVersionAsync(req.Name, req.Version)
	if err != nil {
		return h.asyncError(c, "switch_version", req.Name, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "version switch started",
		TaskID:  taskID,
	})
}

func (h *DependencyHandler) BatchUninstall(c *fiber.Ctx) error {
	req, ok := h.parseBatchRequest(c)
	if !ok {
		return nil
	}

	taskID, err := h.service.BatchUninstallAsync(req.Packages)
	if err != nil {
		return h.asyncError(c, "batch_uninstall", "", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "batch uninstall started",
		TaskID:  taskID,
	})
}

func (h *DependencyHandler) BatchUpdate(c *fiber.Ctx) error {
	req, ok := h.parseBatchRequest(c)
	if !ok {
		return nil
	}

	taskID, err := h.service.BatchUpdateAsync(req.Packages)
	if err != nil {
		return h.asyncError(c, "batch_update", "", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "batch update started",
		TaskID:  taskID,
	})
}

// InstallWhl accepts a multipart wheel upload, saves it to a temp dir
// and installs from there. The temp dir is removed once the task ends.
func (h *DependencyHandler) InstallWhl(c *fiber.Ctx) error {
	return h.installUpload(c, ".whl")
}

func (h *DependencyHandler) InstallRequirements(c *fiber.Ctx) error {
	return h.installUpload(c, ".txt")
}

func (h *DependencyHandler) installUpload(c *fiber.Ctx, wantExt string) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "file upload is required",
		})
	}

	name := filepath.Base(file.Filename)
	if !strings.HasSuffix(strings.ToLower(name), wantExt) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "expected a " + wantExt + " file",
		})
	}

	tmpDir, err := os.MkdirTemp("", "pipdock-upload-")
	if err != nil {
		h.logger.Errorw("upload_tempdir_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to stage upload",
		})
	}

	dest := filepath.Join(tmpDir, name)
	if err := c.SaveFile(file, dest); err != nil {
		os.RemoveAll(tmpDir)
		h.logger.Errorw("upload_save_failed", "file", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to save upload",
		})
	}

	taskID, err := h.service.InstallFileAsync(dest, name, func() {
		os.RemoveAll(tmpDir)
	})
	if err != nil {
		os.RemoveAll(tmpDir)
		return h.asyncError(c, "install_file", name, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.TaskAccepted{
		Message: "installation started",
		TaskID:  taskID,
	})
}

func (h *DependencyHandler) parseNameRequest(c *fiber.Ctx) (dto.PackageNameRequest, bool) {
	var req dto.PackageNameRequest
	if err := c.BodyParser(&req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
		return req, false
	}
	if details := req.Validate(); len(details) > 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
		return req, false
	}
	return req, true
}

func (h *DependencyHandler) parseBatchRequest(c *fiber.Ctx) (dto.BatchPackagesRequest, bool) {
	var req dto.BatchPackagesRequest
	if err := c.BodyParser(&req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
		return req, false
	}
	if details := req.Validate(); len(details) > 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
		return req, false
	}
	return req, true
}

func (h *DependencyHandler) asyncError(c *fiber.Ctx, op, name string, err error) error {
	if errors.Is(err, services.ErrPackageNameRequired) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	h.logger.Errorw("dependency_"+op+"_failed", "package", name, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: err.Error(),
	})
}
