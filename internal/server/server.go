// Package server exposes the memory service over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/rcliao/memdigest/internal/model"
	"github.com/rcliao/memdigest/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	// JWTSecret enables bearer-token owner resolution. When empty the owner
	// is taken from the X-Owner-ID header set by a trusted gateway.
	JWTSecret string

	Logger *slog.Logger

	// AccessLog receives one line per request. Nil means stdout.
	AccessLog io.Writer
}

// Server is the HTTP adapter over a service.Service.
type Server struct {
	app *fiber.App
	svc *service.Service
	log *slog.Logger
}

// New builds the fiber app and registers all routes.
func New(svc *service.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stdout
	}

	s := &Server{
		svc: svc,
		log: opts.Logger.With("component", "http"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "memdigest",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		BodyLimit:             1 << 20,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
		Output:     opts.AccessLog,
	}))

	s.app.Get("/health", s.health)

	api := s.app.Group("/api/v1", ownerMiddleware([]byte(opts.JWTSecret)))
	mem := api.Group("/memories")
	mem.Get("/", s.listMemories)
	mem.Post("/", s.createMemory)
	mem.Delete("/", s.clearMemories)
	mem.Get("/digest", s.digest)
	mem.Post("/expand", s.expand)
	mem.Get("/:id", s.getMemory)
	mem.Put("/:id", s.updateMemory)
	mem.Delete("/:id", s.deleteMemory)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr)
	}()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return err
		}
		return <-errc
	}
}

// errorHandler maps service errors to HTTP statuses. Unexpected errors are
// logged and reported with a generic body.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	reqID, _ := c.Locals("requestid").(string)

	var fe *fiber.Error
	switch {
	case errors.Is(err, model.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "request_id": reqID})
	case errors.Is(err, model.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error(), "request_id": reqID})
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "request_id": reqID})
	}

	s.log.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", reqID,
		"err", err,
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      "internal server error",
		"request_id": reqID,
	})
}
