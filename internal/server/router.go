package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/host"
	"github.com/treebridge/treebridge/internal/logging"
)

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Database   *host.Database
	ListenPort int
}

const contextKeyRequestID = "_treebridge_request_id"

// NewApp builds a Fiber application exposing the host tree API with request-id
// middleware and structured error handling. Diagnostics routes are attached
// separately by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Database == nil {
		return nil, errors.New("host database is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	registerItemRoutes(app, opts.Database)
	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		logger.WithFields(logging.RequestFields(reqID, c.Method(), c.Path(), status)).Debug("request served")
		return err
	}
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		name := "internal_error"
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			name = fe.Message
		case errors.Is(err, host.ErrNotFound):
			code = fiber.StatusNotFound
			name = "item_not_found"
		case errors.Is(err, host.ErrNotHandled):
			code = fiber.StatusConflict
			name = "save_not_handled"
		case errors.Is(err, context.DeadlineExceeded):
			code = fiber.StatusGatewayTimeout
			name = "timeout"
		default:
			logger.WithError(err).WithFields(logrus.Fields{
				"action":     "request_failed",
				"request_id": RequestID(c),
				"path":       c.Path(),
			}).Error("request failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": name})
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
