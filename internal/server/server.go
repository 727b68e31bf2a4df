package server

import (
	"log"

	"smartfeed-be/internal/bootstrap"
	"smartfeed-be/internal/config"
	"smartfeed-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // activity beacons and events are small
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	// WebSocket handshake authenticates itself (query-param token).
	api.Get("/stream/ws", c.StreamHandler.ServeWs)

	stream := api.Group("/stream", serverutils.JwtMiddleware)
	stream.Get("/", c.StreamHandler.GetStream)
	stream.Get("/digest", c.StreamHandler.GetDigest)
	stream.Get("/windows", c.StreamHandler.GetWindows)
	stream.Get("/items/:id/decision", c.StreamHandler.GetDecision)
	stream.Post("/items/:id/read", c.StreamHandler.MarkRead)
	stream.Delete("/items/:id", c.StreamHandler.Dismiss)
	stream.Get("/focus", c.StreamHandler.GetFocus)
	stream.Post("/focus", c.StreamHandler.SetFocus)
	stream.Delete("/focus", c.StreamHandler.ClearFocus)
	stream.Post("/broadcast", c.StreamHandler.Broadcast)
	stream.Post("/debug/trigger-event", c.StreamHandler.DebugTriggerEvent)

	signals := api.Group("/signals", serverutils.JwtMiddleware)
	signals.Post("/interaction", c.SignalHandler.RecordInteraction)
	signals.Post("/activity", c.SignalHandler.RecordActivity)

	prefs := api.Group("/preferences", serverutils.JwtMiddleware)
	prefs.Get("/", c.PreferenceHandler.GetPreferences)
	prefs.Put("/", c.PreferenceHandler.UpdatePreferences)
	prefs.Put("/quiet-hours", c.PreferenceHandler.SetQuietHours)
	prefs.Delete("/quiet-hours", c.PreferenceHandler.ClearQuietHours)
}
