package handler

import (
	"time"

	"smartfeed-be/internal/dto"
	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/service"
	"smartfeed-be/pkg/engine/timing"

	"github.com/gofiber/fiber/v2"
)

// SignalHandler accepts implicit interaction feedback and passive activity
// beacons. Both paths are fire-and-forget: capture must never slow the
// client down.
type SignalHandler struct {
	signals service.ISignalService
	stream  *service.StreamService
	logger  logger.ILogger
}

func NewSignalHandler(signals service.ISignalService, stream *service.StreamService, log logger.ILogger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		stream:  stream,
		logger:  log,
	}
}

// RecordInteraction publishes one implicit feedback signal.
func (h *SignalHandler) RecordInteraction(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	source, _ := model.ParseSource(req.Source)
	signal := model.InteractionSignal{
		ItemID:  req.ItemID,
		Source:  source,
		Topic:   req.Topic,
		ActorID: req.ActorID,
		Action:  model.InteractionAction(req.Action),
		At:      time.Now(),
	}

	if err := h.signals.PublishInteraction(c.UserContext(), userID, signal); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}

// RecordActivity folds one ambient-signal beacon into the session buffers
// and echoes back the derived activity state.
func (h *SignalHandler) RecordActivity(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	now := time.Now()
	sess := h.stream.Session(userID)

	if req.Keystrokes > 0 {
		samples := make([]time.Time, req.Keystrokes)
		for i := range samples {
			samples[i] = now
		}
		sess.RecordKeystrokes(samples)
	}

	var pointer, click, scroll time.Time
	if req.Pointer {
		pointer = now
	}
	if req.Click {
		click = now
	}
	if req.Scroll {
		scroll = now
	}
	sess.RecordActivity(pointer, click, scroll, req.WindowTitle, req.PageTopics)

	return c.JSON(dto.ActivityResponse{Activity: timing.Classify(sess.Signals(), now)})
}
