package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	apimcp "github.com/papercomputeco/stacks/api/mcp"
	"github.com/papercomputeco/stacks/pkg/knowledge"
)

// Server is the HTTP API server for the stacks system. It exposes the
// knowledge base operations as REST routes and mounts the MCP streamable
// HTTP handler at /mcp so a single port serves both surfaces.
type Server struct {
	config    Config
	knowledge *knowledge.Client
	logger    *slog.Logger
	app       *fiber.App
	mcp       *apimcp.Server
}

// NewServer creates a new API server.
// The knowledge client is injected to allow sharing with other components
// (e.g., a CLI that serves and queries from the same process).
func NewServer(config Config, knowledgeClient *knowledge.Client, logger *slog.Logger) (*Server, error) {
	if knowledgeClient == nil {
		return nil, errors.New("knowledge client is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	mcpServer, err := apimcp.NewServer(apimcp.Config{
		Knowledge: knowledgeClient,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		knowledge: knowledgeClient,
		logger:    logger,
		app:       app,
		mcp:       mcpServer,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/search", s.handleSearch)
	app.Get("/v1/document/:id", s.handleDocument)
	app.Get("/v1/collections", s.handleCollections)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
