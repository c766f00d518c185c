package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dp-cache/filecache/cache"
	"github.com/dp-cache/filecache/internal/config"
	"github.com/dp-cache/filecache/internal/logging"
)

// entryHandler serves GET/PUT on /cache/[:format/]:name.
type entryHandler struct {
	store         EntryStore
	logger        *logrus.Logger
	defaultTTL    time.Duration
	defaultFormat string
}

// get 返回未过期的条目；缺失与过期都视为 miss，不区分。
func (h *entryHandler) get(c fiber.Ctx) error {
	name, format := h.target(c)
	fields := logging.EntryFields(name, format, false)

	var value any
	found, err := h.store.Get(name, format, &value)
	if err != nil {
		return RenderError(c, h.logger, err, fields)
	}
	if !found {
		c.Set("X-Cache", "MISS")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache_miss"})
	}

	c.Set("X-Cache", "HIT")
	return c.JSON(fiber.Map{
		"name":   name,
		"format": format,
		"value":  value,
	})
}

// put 以 JSON 请求体作为值写入缓存，ttl 查询参数缺省时使用配置的 DefaultTTL。
func (h *entryHandler) put(c fiber.Ctx) error {
	name, format := h.target(c)
	fields := logging.EntryFields(name, format, false)

	ttl := h.defaultTTL
	if raw := strings.TrimSpace(c.Query("ttl")); raw != "" {
		var parsed config.Duration
		if err := parsed.UnmarshalText([]byte(raw)); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_ttl",
				"message": err.Error(),
			})
		}
		ttl = parsed.DurationValue()
	}

	bodyCodec, err := cache.LookupCodec(cache.FormatJSON)
	if err != nil {
		return RenderError(c, h.logger, err, fields)
	}
	var value any
	if err := bodyCodec.Decode(c.Body(), &value); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_body",
			"message": err.Error(),
		})
	}

	if err := h.store.Set(name, value, ttl, format); err != nil {
		return RenderError(c, h.logger, err, fields)
	}

	fields["ttl_seconds"] = int64(ttl / time.Second)
	h.logger.WithFields(fields).Debug("cache entry stored via http")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *entryHandler) target(c fiber.Ctx) (string, string) {
	format := NormalizeFormat(c.Params("format"))
	if format == "" {
		format = h.defaultFormat
	}
	return strings.TrimSpace(c.Params("name")), format
}

// NormalizeFormat trims and lowercases a format path segment so /cache/JSON/x
// and /cache/json/x address the same entry.
func NormalizeFormat(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
