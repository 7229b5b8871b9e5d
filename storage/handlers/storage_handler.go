// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/lumen-chat/lumen/internal/types"
	storageErrors "github.com/lumen-chat/lumen/storage/errors"
	"github.com/lumen-chat/lumen/storage/services"
)

// StorageHandler handles all storage-related HTTP requests
type StorageHandler struct {
	uploads   *services.UploadService
	files     *services.FileService
	content   *services.ContentService
	transform services.Transform
}

// NewStorageHandler creates a new StorageHandler with injected dependencies
func NewStorageHandler(uploads *services.UploadService, files *services.FileService, content *services.ContentService, transform services.Transform) *StorageHandler {
	return &StorageHandler{
		uploads:   uploads,
		files:     files,
		content:   content,
		transform: transform,
	}
}

// UploadAttachments handles message-attachment uploads
// POST /storage/attachments
func (h *StorageHandler) UploadAttachments(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid multipart form")
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return storageErrors.HandleInvalidRequestError(c, "No files attached")
	}

	input := services.UploadInput{
		UserID: user.UserID,
	}

	if messageIDStr := c.FormValue("messageId"); messageIDStr != "" {
		messageID, err := uuid.FromString(messageIDStr)
		if err != nil {
			return storageErrors.HandleInvalidRequestError(c, "Invalid message ID")
		}
		input.MessageID = &messageID
	}

	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			return storageErrors.HandleInvalidRequestError(c, "Unreadable file part")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return storageErrors.HandleInvalidRequestError(c, "Unreadable file part")
		}
		input.Files = append(input.Files, services.UploadFile{
			Name:      fh.Filename,
			MediaType: fh.Header.Get(types.HeaderContentType),
			Bytes:     data,
		})
	}

	if c.FormValue("transformImages") == "true" && h.transform != nil {
		input.Transform = h.transform
		input.TransformOptions = &services.TransformOptions{
			MaxWidth:  c.QueryInt("maxWidth", 2048),
			MaxHeight: c.QueryInt("maxHeight", 2048),
			Quality:   c.QueryInt("quality", 85),
			Format:    c.Query("format", "webp"),
		}
	}

	persisted, err := h.uploads.UploadAttachments(c.Context(), input)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"files": persisted})
}

// DeleteFile handles file deletion
// DELETE /storage/files/:fileId
func (h *StorageHandler) DeleteFile(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid file ID")
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.files.DeleteFile(c.Context(), fileID, user.UserID); err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// GetFileURL handles retrieving the download URL for a file
// GET /storage/files/:fileId/url
func (h *StorageHandler) GetFileURL(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid file ID")
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	url, err := h.files.GetFileURL(c.Context(), fileID, user.UserID)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"url": url})
}

// GetStorageStats handles retrieving the caller's storage summary
// GET /storage/stats
func (h *StorageHandler) GetStorageStats(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	stats, err := h.files.StorageStats(c.Context(), user.UserID)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(stats)
}

// GetInlineContent returns a file's content as an inline data URL
// GET /storage/files/:fileId/inline
func (h *StorageHandler) GetInlineContent(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleInvalidRequestError(c, "Invalid file ID")
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return storageErrors.HandleUserContextError(c, "Invalid user context")
	}

	file, err := h.files.FindOwnedFile(c.Context(), fileID, user.UserID)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	dataURL, err := h.content.ToInlineContent(c.Context(), file.StorageKey, file.MediaType)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"content": dataURL})
}
