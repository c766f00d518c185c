package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dp-cache/filecache/cache"
	"github.com/dp-cache/filecache/internal/logging"
)

// EntryStore is the subset of *cache.Store the HTTP layer depends on.
type EntryStore interface {
	Set(name string, value any, ttl time.Duration, format string) error
	Get(name, format string, dst any) (bool, error)
	Inspect(name, format string) (cache.Entry, error)
	Dir() (string, error)
}

// AppOptions controls how the Fiber application serves the store.
type AppOptions struct {
	Logger        *logrus.Logger
	Store         EntryStore
	DefaultTTL    time.Duration
	DefaultFormat string
}

const contextKeyRequestID = "_filecache_request_id"

// NewApp builds a Fiber application with request-ID/logging middleware and the
// /cache routes mounted.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.DefaultTTL <= 0 {
		return nil, fmt.Errorf("invalid default ttl: %s", opts.DefaultTTL)
	}
	if _, err := cache.LookupCodec(opts.DefaultFormat); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	h := &entryHandler{
		store:         opts.Store,
		logger:        opts.Logger,
		defaultTTL:    opts.DefaultTTL,
		defaultFormat: opts.DefaultFormat,
	}
	app.Get("/cache/:format/:name", h.get)
	app.Put("/cache/:format/:name", h.put)
	app.Get("/cache/:name", h.get)
	app.Put("/cache/:name", h.put)

	return app, nil
}

// requestContextMiddleware 生成请求 ID，并在请求结束后输出一条访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		started := time.Now()
		err := c.Next()

		fields := logging.RequestFields(c.Method(), c.Path(), reqID, c.Response().StatusCode())
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		logger.WithFields(fields).Debug("request served")
		return err
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// RenderError maps cache errors onto HTTP status codes and a stable error key.
func RenderError(c fiber.Ctx, logger *logrus.Logger, err error, fields logrus.Fields) error {
	status, key := classifyError(err)
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["request_id"] = RequestID(c)
	fields["error_key"] = key

	entry := logger.WithFields(fields).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error("cache request failed")
	} else {
		entry.Warn("cache request rejected")
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   key,
		"message": err.Error(),
	})
}

func classifyError(err error) (int, string) {
	var (
		unsupported *cache.UnsupportedFormatError
		codecErr    *cache.CodecError
		storeErr    *cache.StoreError
	)
	switch {
	case errors.Is(err, cache.ErrInvalidName):
		return fiber.StatusBadRequest, "invalid_name"
	case errors.As(err, &unsupported):
		return fiber.StatusBadRequest, "unsupported_format"
	case errors.As(err, &codecErr):
		return fiber.StatusInternalServerError, "codec_error"
	case errors.As(err, &storeErr):
		return fiber.StatusInternalServerError, "store_error"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
