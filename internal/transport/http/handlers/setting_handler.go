package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/transport/http/dto"
)

const settingKeyUserSettings = "user_settings"

// SettingHandler serves the dashboard's user settings as one merged
// JSON document. POST patches keys into the stored document.
type SettingHandler struct {
	settings ports.SettingRepository
	logger   *logger.Logger
}

func NewSettingHandler(settings ports.SettingRepository, logger *logger.Logger) *SettingHandler {
	return &SettingHandler{settings: settings, logger: logger}
}

func (h *SettingHandler) GetSettings(c *fiber.Ctx) error {
	doc, err := h.load(c)
	if err != nil {
		h.logger.Errorw("settings_get_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(doc)
}

func (h *SettingHandler) UpdateSettings(c *fiber.Ctx) error {
	var patch map[string]interface{}
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	doc, err := h.load(c)
	if err != nil {
		h.logger.Errorw("settings_load_for_update_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	for key, value := range patch {
		doc[key] = value
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	if err := h.settings.Set(c.Context(), settingKeyUserSettings, string(raw)); err != nil {
		h.logger.Errorw("settings_update_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(doc)
}

func (h *SettingHandler) load(c *fiber.Ctx) (map[string]interface{}, error) {
	doc := make(map[string]interface{})

	setting, err := h.settings.Get(c.Context(), settingKeyUserSettings)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(setting.Value), &doc); err != nil {
		h.logger.Warnw("settings_doc_corrupt", "error", err)
		return make(map[string]interface{}), nil
	}
	return doc, nil
}
