package server

import (
	"log/slog"

	"maizedigest/app/config"
	"maizedigest/app/service/conversation"
	"maizedigest/app/service/export"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/samber/do"
)

type Server struct {
	cfg             *config.Config
	app             *fiber.App
	validate        *validator.Validate
	conversationSvc *conversation.Service
	exportSvc       *export.Service
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	app := fiber.New(fiber.Config{
		BodyLimit:             1024 * 1024,
		DisableStartupMessage: true,
	})

	origins := cfg.Server.CorsOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s := &Server{
		cfg:             cfg,
		app:             app,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		exportSvc:       do.MustInvoke[*export.Service](di),
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	api.Post("/chat", s.handleChat)
	api.Post("/digest", s.handleDigest)
	api.Post("/export", s.handleExport)

	api.Post("/session", s.handleCreateSession)
	api.Get("/session/:id/messages", s.handleSessionMessages)
	api.Post("/session/:id/message", s.handleSessionMessage)
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	slog.Info("API server listening", "addr", s.cfg.Server.Addr)

	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
