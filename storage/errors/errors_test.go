package errors_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageErrors "github.com/lumen-chat/lumen/storage/errors"
	"github.com/lumen-chat/lumen/storage/services"
)

func responseFor(t *testing.T, err error) (int, map[string]string) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return storageErrors.HandleServiceError(c, err)
	})

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	return resp.StatusCode, payload
}

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", services.ErrFileNotFound, http.StatusNotFound, "FILE_NOT_FOUND"},
		{"not owner", services.ErrNotFileOwner, http.StatusForbidden, "FORBIDDEN"},
		{"quota", services.ErrQuotaExceeded, http.StatusForbidden, "QUOTA_EXCEEDED"},
		{"too many files", services.ErrTooManyFiles, http.StatusBadRequest, "MESSAGE_LIMIT_EXCEEDED"},
		{"message too large", services.ErrMessageFilesTooLarge, http.StatusBadRequest, "MESSAGE_LIMIT_EXCEEDED"},
		{"blob backend", services.ErrStorageBackend, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"metadata write", services.ErrMetadataWrite, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := responseFor(t, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, payload["error"])
		})
	}
}

func TestHandleServiceError_WrappedErrorsStillMatch(t *testing.T) {
	status, payload := responseFor(t, fmt.Errorf("persist: %w", services.ErrQuotaExceeded))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "QUOTA_EXCEEDED", payload["error"])
	// Quota messages are actionable for the end user.
	assert.Contains(t, payload["message"], "delete some files")
}

func TestHandleServiceError_BackendMessageCarriesNoInternals(t *testing.T) {
	status, payload := responseFor(t, services.ErrStorageBackend)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotContains(t, payload["message"], "s3")
	assert.NotContains(t, payload["message"], "sql")
}
