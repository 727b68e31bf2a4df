package handler

import (
	"smartfeed-be/internal/dto"
	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PreferenceHandler struct {
	stream *service.StreamService
	logger logger.ILogger
}

func NewPreferenceHandler(stream *service.StreamService, log logger.ILogger) *PreferenceHandler {
	return &PreferenceHandler{stream: stream, logger: log}
}

// GetPreferences returns the current taste and delivery settings.
func (h *PreferenceHandler) GetPreferences(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	prefs := h.stream.Taste(c.UserContext(), userID).Preference()
	return c.JSON(dto.PreferencesResponse{Preferences: prefs})
}

// UpdatePreferences replaces the user-editable delivery settings. Learned
// affinities are never set through this endpoint.
func (h *PreferenceHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	settings := model.TastePreference{
		DigestTime:  req.DigestTime,
		DigestEmail: req.DigestEmail,
		BatchMode:   model.BatchMode(req.BatchMode),
	}
	if req.QuietHours != nil {
		settings.QuietHours = &model.QuietHours{Start: req.QuietHours.Start, End: req.QuietHours.End}
	}
	for _, w := range req.Windows {
		settings.Windows = append(settings.Windows, model.DeliveryWindow{
			Name:      w.Name,
			StartHour: w.StartHour,
			Enabled:   w.Enabled,
		})
	}

	tasteModel := h.stream.Taste(c.UserContext(), userID)
	if err := tasteModel.UpdateSettings(c.UserContext(), settings); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(dto.PreferencesResponse{Preferences: tasteModel.Preference()})
}

// SetQuietHours configures the quiet-hours window on its own.
func (h *PreferenceHandler) SetQuietHours(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.QuietHoursRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tasteModel := h.stream.Taste(c.UserContext(), userID)
	if err := tasteModel.SetQuietHours(c.UserContext(), req.Start, req.End); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

// ClearQuietHours removes the quiet-hours window.
func (h *PreferenceHandler) ClearQuietHours(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	tasteModel := h.stream.Taste(c.UserContext(), userID)
	if err := tasteModel.ClearQuietHours(c.UserContext()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}
