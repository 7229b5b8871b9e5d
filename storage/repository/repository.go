// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/lumen-chat/lumen/storage/models"
)

// Repository defines the database operations backing the storage governance
// engine. Single-row conditional updates are the only atomicity primitive the
// engine relies on; everything larger is a saga built on top of these calls.
type Repository interface {
	// GetOrCreatePolicy returns the user's policy row, inserting defaults on
	// first access. Concurrent first-touches must never error.
	GetOrCreatePolicy(ctx context.Context, userID uuid.UUID, defaults models.PolicyDefaults) (*models.StoragePolicy, error)

	// SetTier updates the user's tier.
	SetTier(ctx context.Context, userID uuid.UUID, tier string) error

	// TryReserveUserTransform performs the conditional increment on the user
	// counter. reserved is false when the limit predicate rejected the update.
	TryReserveUserTransform(ctx context.Context, userID uuid.UUID) (used int, limit *int, reserved bool, err error)

	// ReleaseUserTransform decrements the user counter, floored at zero.
	ReleaseUserTransform(ctx context.Context, userID uuid.UUID) error

	// EnsureGlobalUsage upserts the month row, refreshing its limit from the
	// given value, and returns the current row.
	EnsureGlobalUsage(ctx context.Context, monthKey string, limit int) (*models.GlobalTransformUsage, error)

	// TryReserveGlobalTransform performs the conditional increment on the
	// shared monthly counter.
	TryReserveGlobalTransform(ctx context.Context, monthKey string) (bool, error)

	// ReleaseGlobalTransform decrements the monthly counter, floored at zero.
	ReleaseGlobalTransform(ctx context.Context, monthKey string) error

	// CreateFile inserts a new file record.
	CreateFile(ctx context.Context, file *models.File) error

	// FindFileByID retrieves a file by its ID.
	FindFileByID(ctx context.Context, id uuid.UUID) (*models.File, error)

	// DeleteFile permanently deletes a file record.
	DeleteFile(ctx context.Context, id uuid.UUID) error

	// TotalSizeByUser returns the summed size of a user's files for quota checks.
	TotalSizeByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// CountFilesByUser returns how many files a user currently has.
	CountFilesByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// FindFilesByUser retrieves all of a user's files.
	FindFilesByUser(ctx context.Context, userID uuid.UUID) ([]*models.File, error)

	// UpdateFileExpiry sets or clears a file's expiry timestamp.
	UpdateFileExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error

	// FindExpiredFiles returns up to limit files with expires_at <= now,
	// oldest-expiring first.
	FindExpiredFiles(ctx context.Context, now time.Time, limit int) ([]*models.File, error)
}
