package handler

import (
	"os"
	"time"

	"smartfeed-be/internal/dto"
	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/service"
	internalWS "smartfeed-be/internal/websocket"
	"smartfeed-be/pkg/events"
	pktNats "smartfeed-be/pkg/nats"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var validate = validator.New()

type StreamHandler struct {
	service   *service.StreamService
	publisher *pktNats.Publisher
	hub       *internalWS.Hub
	logger    logger.ILogger
}

func NewStreamHandler(svc *service.StreamService, pub *pktNats.Publisher, hub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		service:   svc,
		publisher: pub,
		hub:       hub,
		logger:    log,
	}
}

// userIDFromLocals normalizes the user id the auth middleware stored,
// whatever its concrete type.
func userIDFromLocals(c *fiber.Ctx) (string, bool) {
	if s, ok := c.Locals("user_id").(string); ok {
		if _, err := uuid.Parse(s); err == nil {
			return s, true
		}
		return "", false
	}
	if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
		return uid.String(), true
	}
	return "", false
}

// ServeWs handles websocket requests from the peer. Browsers cannot set
// headers on the handshake, so the token also comes via query param.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("StreamHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("StreamHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// GetStream returns the ranked, blended stream for the current user.
func (h *StreamHandler) GetStream(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	items := h.service.Stream(c.UserContext(), userID)

	var buckets dto.TierBuckets
	for _, item := range items {
		switch item.Tier {
		case model.TierCritical:
			buckets.Critical = append(buckets.Critical, item)
		case model.TierElevated:
			buckets.Elevated = append(buckets.Elevated, item)
		default:
			buckets.Ambient = append(buckets.Ambient, item)
		}
	}

	return c.JSON(dto.StreamResponse{
		Items:       items,
		Buckets:     buckets,
		UnreadCount: h.service.Session(userID).UnreadCount(),
		GeneratedAt: time.Now(),
	})
}

// GetDigest returns the categorized summary for the current hour.
func (h *StreamHandler) GetDigest(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	hour := c.QueryInt("hour", time.Now().Hour())
	summary := h.service.Digest(c.UserContext(), userID, hour)
	return c.JSON(dto.DigestResponse{Digest: summary})
}

// GetWindows reports the user's position in the batched-delivery schedule.
func (h *StreamHandler) GetWindows(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	status, scheduled := h.service.WindowStatus(c.UserContext(), userID)
	return c.JSON(dto.WindowStatusResponse{Status: status, Scheduled: scheduled})
}

// GetDecision explains why an item was or was not delivered.
func (h *StreamHandler) GetDecision(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	itemID := c.Params("id")
	decision, err := h.service.Decision(c.UserContext(), userID, itemID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(dto.DecisionResponse{ItemID: itemID, Decision: decision})
}

// MarkRead flags an item as read.
func (h *StreamHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if !h.service.MarkRead(c.UserContext(), userID, c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// Dismiss removes an item from the working set.
func (h *StreamHandler) Dismiss(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if !h.service.Dismiss(c.UserContext(), userID, c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// SetFocus enables focus mode for the requested duration.
func (h *StreamHandler) SetFocus(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req dto.FocusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	until := time.Now().Add(time.Duration(req.Minutes) * time.Minute)
	if err := h.service.Policy().SetFocus(c.UserContext(), userID, until); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "focus_until": until})
}

// GetFocus reports the current focus-mode expiry, if any.
func (h *StreamHandler) GetFocus(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	until := h.service.Policy().Focus(c.UserContext(), userID)
	active := until != nil && time.Now().Before(*until)
	return c.JSON(fiber.Map{"active": active, "focus_until": until})
}

// ClearFocus disables focus mode.
func (h *StreamHandler) ClearFocus(c *fiber.Ctx) error {
	userID, ok := userIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := h.service.Policy().ClearFocus(c.UserContext(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

// DebugTriggerEvent injects a synthetic producer event to test the flow.
func (h *StreamHandler) DebugTriggerEvent(c *fiber.Ctx) error {
	var req dto.DebugEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Type == "" {
		req.Type = "TEST_EVENT"
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}
	if _, ok := req.Payload["user_id"]; !ok {
		if uid := c.Locals("user_id"); uid != nil {
			req.Payload["user_id"] = uid
		}
	}
	if _, ok := req.Payload["id"]; !ok {
		req.Payload["id"] = uuid.NewString()
	}

	evt := events.BaseEvent{
		Type:       req.Type,
		Data:       req.Payload,
		OccurredAt: time.Now(),
	}

	if h.publisher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Event publisher not configured"})
	}
	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "Event Published", "event": evt})
}

// Broadcast pushes a system-wide ambient update to all connected sessions.
func (h *StreamHandler) Broadcast(c *fiber.Ctx) error {
	type Request struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Title == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and Message are required"})
	}

	h.hub.Broadcast("system_broadcast", fiber.Map{
		"title":   req.Title,
		"message": req.Message,
	})
	return c.JSON(fiber.Map{"success": true})
}
