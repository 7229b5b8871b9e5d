// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lumen-chat/lumen/storage/services"
)

// HandleInvalidRequestError handles invalid request errors
func HandleInvalidRequestError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error":   "INVALID_REQUEST",
		"message": message,
	})
}

// HandleUserContextError handles user context errors
func HandleUserContextError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// HandleServiceError maps service layer errors to HTTP responses. Quota and
// limit errors carry actionable messages; backend failures map to a generic
// retryable message with no internal identifiers.
func HandleServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrFileNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error":   "FILE_NOT_FOUND",
			"message": err.Error(),
		})

	case errors.Is(err, services.ErrNotFileOwner):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error":   "FORBIDDEN",
			"message": err.Error(),
		})

	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error":   "QUOTA_EXCEEDED",
			"message": err.Error(),
		})

	case errors.Is(err, services.ErrTooManyFiles),
		errors.Is(err, services.ErrMessageFilesTooLarge):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "MESSAGE_LIMIT_EXCEEDED",
			"message": err.Error(),
		})

	case errors.Is(err, services.ErrStorageBackend),
		errors.Is(err, services.ErrMetadataWrite):
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "STORAGE_UNAVAILABLE",
			"message": "storage is temporarily unavailable, try again later",
		})
	}

	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error":   "INTERNAL_ERROR",
		"message": "internal error",
	})
}
