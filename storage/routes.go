// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package storage

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lumen-chat/lumen/internal/middleware/authjwt"
	platformconfig "github.com/lumen-chat/lumen/internal/platform/config"
	"github.com/lumen-chat/lumen/internal/types"
	"github.com/lumen-chat/lumen/storage/handlers"
)

// StorageHandlers aggregates the handlers wired into the storage routes.
type StorageHandlers struct {
	StorageHandler *handlers.StorageHandler
	AdminHandler   *handlers.AdminHandler
}

func requireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(types.UserCtxName).(types.UserContext)
		if !ok || user.Role != types.AdminRole {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error":   "FORBIDDEN",
				"message": "admin role required",
			})
		}
		return c.Next()
	}
}

// RegisterRoutes is the single entry point for setting up storage routes.
func RegisterRoutes(app *fiber.App, h *StorageHandlers, cfg *platformconfig.Config) {
	if h == nil || h.StorageHandler == nil || h.AdminHandler == nil {
		panic("StorageHandlers is required")
	}

	authMiddleware := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		ClaimKey:    "claim",
		UserCtxName: types.UserCtxName,
	})

	storageRoutes := app.Group("/storage")
	userGroup := storageRoutes.Group("", authMiddleware)

	userGroup.Post("/attachments", h.StorageHandler.UploadAttachments)
	userGroup.Get("/stats", h.StorageHandler.GetStorageStats)
	userGroup.Get("/files/:fileId/url", h.StorageHandler.GetFileURL)
	userGroup.Get("/files/:fileId/inline", h.StorageHandler.GetInlineContent)
	userGroup.Delete("/files/:fileId", h.StorageHandler.DeleteFile)

	adminGroup := userGroup.Group("/admin", requireAdmin())
	adminGroup.Post("/retention/recompute", h.AdminHandler.RecomputeRetention)
	adminGroup.Post("/sweep", h.AdminHandler.SweepExpired)
	adminGroup.Put("/users/:userId/tier", h.AdminHandler.SetTier)
	adminGroup.Get("/transforms/global", h.AdminHandler.GlobalStats)
}
