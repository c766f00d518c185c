package routes

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dp-cache/filecache/cache"
	"github.com/dp-cache/filecache/internal/server"
)

// RegisterDiagnosticRoutes 暴露 /-/healthz 与 /-/entries 诊断接口。过期但仍在磁盘上的
// 条目也能在这里查到，便于运维排查。
func RegisterDiagnosticRoutes(app *fiber.App, store server.EntryStore, logger *logrus.Logger) {
	if app == nil || store == nil || logger == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		dir, err := store.Dir()
		if err != nil {
			return server.RenderError(c, logger, err, logrus.Fields{"action": "healthz"})
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"dir":     dir,
			"formats": cache.Formats(),
		})
	})

	app.Get("/-/entries/:format/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		format := server.NormalizeFormat(c.Params("format"))

		entry, err := store.Inspect(name, format)
		if err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entry_not_found"})
			}
			return server.RenderError(c, logger, err, logrus.Fields{"action": "inspect"})
		}
		return c.JSON(encodeEntry(entry))
	})
}

type entryPayload struct {
	Name       string `json:"name"`
	Format     string `json:"format"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	ExpiresAt  string `json:"expires_at"`
	TTLSeconds int64  `json:"ttl_seconds"`
	Expired    bool   `json:"expired"`
}

func encodeEntry(entry cache.Entry) entryPayload {
	return entryPayload{
		Name:       entry.Name,
		Format:     entry.Format,
		Path:       entry.Path,
		SizeBytes:  entry.SizeBytes,
		ExpiresAt:  entry.ExpiresAt.UTC().Format(time.RFC3339),
		Expired:    entry.Expired,
		TTLSeconds: int64(entry.TTL / time.Second),
	}
}
