// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	storageErrors "github.com/lumen-chat/lumen/storage/errors"
	"github.com/lumen-chat/lumen/storage/services"
)

// AdminHandler exposes the governance maintenance operations.
type AdminHandler struct {
	policies  *services.PolicyService
	retention *services.RetentionService
	sweep     *services.SweepService
}

// NewAdminHandler creates a new AdminHandler with injected dependencies
func NewAdminHandler(policies *services.PolicyService, retention *services.RetentionService, sweep *services.SweepService) *AdminHandler {
	return &AdminHandler{
		policies:  policies,
		retention: retention,
		sweep:     sweep,
	}
}

type recomputeRequest struct {
	UserID    uuid.UUID `json:"userId"`
	GraceDays int       `json:"graceDays"`
}

// RecomputeRetention recomputes expiry timestamps for one user's files
// POST /storage/admin/retention/recompute
func (h *AdminHandler) RecomputeRetention(c *fiber.Ctx) error {
	var req recomputeRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid request body")
	}
	if req.UserID == uuid.Nil {
		return storageErrors.HandleInvalidRequestError(c, "userId is required")
	}
	if req.GraceDays < 0 {
		return storageErrors.HandleInvalidRequestError(c, "graceDays must not be negative")
	}

	result, err := h.retention.RecomputeRetention(c.Context(), req.UserID, req.GraceDays)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

type sweepRequest struct {
	BatchSize    int `json:"batchSize"`
	MaxRuntimeMs int `json:"maxRuntimeMs"`
}

// SweepExpired runs one bounded expiry sweep batch
// POST /storage/admin/sweep
func (h *AdminHandler) SweepExpired(c *fiber.Ctx) error {
	req := sweepRequest{BatchSize: 100, MaxRuntimeMs: 30000}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return storageErrors.HandleInvalidRequestError(c, "Invalid request body")
		}
	}
	if req.BatchSize <= 0 || req.MaxRuntimeMs <= 0 {
		return storageErrors.HandleInvalidRequestError(c, "batchSize and maxRuntimeMs must be positive")
	}

	result, err := h.sweep.SweepExpired(c.Context(), services.SweepOptions{
		BatchSize:  req.BatchSize,
		MaxRuntime: time.Duration(req.MaxRuntimeMs) * time.Millisecond,
	})
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

type tierRequest struct {
	Tier      string `json:"tier"`
	GraceDays int    `json:"graceDays"`
}

// SetTier changes a user's tier and recomputes their files' retention
// PUT /storage/admin/users/:userId/tier
func (h *AdminHandler) SetTier(c *fiber.Ctx) error {
	userID, err := uuid.FromString(c.Params("userId"))
	if err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid user ID")
	}

	var req tierRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid request body")
	}
	if req.GraceDays < 0 {
		return storageErrors.HandleInvalidRequestError(c, "graceDays must not be negative")
	}

	policy, err := h.policies.SetTier(c.Context(), userID, req.Tier)
	if err != nil {
		return storageErrors.HandleInvalidRequestError(c, err.Error())
	}

	// The tier change moves the retention goalposts; recompute immediately so
	// existing files pick up the new policy.
	result, err := h.retention.RecomputeRetention(c.Context(), userID, req.GraceDays)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"policy":    policy,
		"retention": result,
	})
}

// GlobalStats reports the shared monthly transform budget
// GET /storage/admin/transforms/global
func (h *AdminHandler) GlobalStats(c *fiber.Ctx) error {
	stats, err := h.policies.GlobalMonthlyStats(c.Context())
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}
	return c.JSON(stats)
}
