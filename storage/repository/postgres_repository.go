// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lumen-chat/lumen/internal/database/postgres"
	"github.com/lumen-chat/lumen/storage/models"
)

type postgresRepository struct {
	client *postgres.Client
	schema string
}

// NewPostgresRepository creates a repository using the default schema.
func NewPostgresRepository(client *postgres.Client) Repository {
	return &postgresRepository{client: client, schema: ""}
}

// NewPostgresRepositoryWithSchema creates a repository using a specific schema.
func NewPostgresRepositoryWithSchema(client *postgres.Client, schema string) Repository {
	return &postgresRepository{client: client, schema: schema}
}

func (r *postgresRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresRepository) prefixSchema(query string) string {
	if r.schema != "" {
		return fmt.Sprintf(query, r.schema+".")
	}
	return fmt.Sprintf(query, "")
}

// GetOrCreatePolicy returns the user's policy row, inserting defaults on first
// access. The insert uses ON CONFLICT DO NOTHING so concurrent first-touches
// race harmlessly; whichever insert wins, the follow-up select sees one row.
func (r *postgresRepository) GetOrCreatePolicy(ctx context.Context, userID uuid.UUID, defaults models.PolicyDefaults) (*models.StoragePolicy, error) {
	insert := `
		INSERT INTO %sstorage_policies
			(user_id, tier, storage_bytes, max_files_per_message, max_message_files_bytes,
			 file_retention_days, image_transform_limit_total, image_transform_used_total,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8)
		ON CONFLICT (user_id) DO NOTHING
	`

	exec := r.getExecutor(ctx)
	now := time.Now()
	_, err := exec.ExecContext(ctx, r.prefixSchema(insert),
		userID, models.TierFree, defaults.StorageBytes, defaults.MaxFilesPerMessage,
		defaults.MaxMessageFilesBytes, defaults.FileRetentionDays,
		defaults.ImageTransformLimitTotal, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure policy row: %w", err)
	}

	query := `
		SELECT user_id, tier, storage_bytes, max_files_per_message, max_message_files_bytes,
		       file_retention_days, image_transform_limit_total, image_transform_used_total,
		       created_at, updated_at
		FROM %sstorage_policies
		WHERE user_id = $1
	`

	var policy models.StoragePolicy
	err = exec.QueryRowxContext(ctx, r.prefixSchema(query), userID).StructScan(&policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy row: %w", err)
	}
	return &policy, nil
}

// SetTier updates the user's tier
func (r *postgresRepository) SetTier(ctx context.Context, userID uuid.UUID, tier string) error {
	query := `
		UPDATE %sstorage_policies
		SET tier = $1, updated_at = $2
		WHERE user_id = $3
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), tier, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("policy row not found for user %s", userID)
	}
	return nil
}

// TryReserveUserTransform increments the user counter only while it is below
// its limit. Zero rows affected means the budget is exhausted.
func (r *postgresRepository) TryReserveUserTransform(ctx context.Context, userID uuid.UUID) (int, *int, bool, error) {
	query := `
		UPDATE %sstorage_policies
		SET image_transform_used_total = image_transform_used_total + 1, updated_at = $2
		WHERE user_id = $1
		  AND (image_transform_limit_total IS NULL
		       OR image_transform_used_total < image_transform_limit_total)
		RETURNING image_transform_used_total, image_transform_limit_total
	`

	exec := r.getExecutor(ctx)
	var used int
	var limit *int
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), userID, time.Now()).Scan(&used, &limit)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("failed to reserve user transform: %w", err)
	}
	return used, limit, true, nil
}

// ReleaseUserTransform decrements the user counter, floored at zero
func (r *postgresRepository) ReleaseUserTransform(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE %sstorage_policies
		SET image_transform_used_total = GREATEST(image_transform_used_total - 1, 0), updated_at = $2
		WHERE user_id = $1
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to release user transform: %w", err)
	}
	return nil
}

// EnsureGlobalUsage upserts the month row, refreshing its limit on every call
// so a configuration change takes effect without a migration.
func (r *postgresRepository) EnsureGlobalUsage(ctx context.Context, monthKey string, limit int) (*models.GlobalTransformUsage, error) {
	query := `
		INSERT INTO %sglobal_transform_usage (month_key, transforms_used, transforms_limit, updated_at)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (month_key)
		DO UPDATE SET transforms_limit = EXCLUDED.transforms_limit, updated_at = EXCLUDED.updated_at
		RETURNING month_key, transforms_used, transforms_limit, updated_at
	`

	exec := r.getExecutor(ctx)
	var usage models.GlobalTransformUsage
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), monthKey, limit, time.Now()).StructScan(&usage)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure global usage row: %w", err)
	}
	return &usage, nil
}

// TryReserveGlobalTransform increments the monthly counter only while it is
// below its limit
func (r *postgresRepository) TryReserveGlobalTransform(ctx context.Context, monthKey string) (bool, error) {
	query := `
		UPDATE %sglobal_transform_usage
		SET transforms_used = transforms_used + 1, updated_at = $2
		WHERE month_key = $1 AND transforms_used < transforms_limit
	`

	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, r.prefixSchema(query), monthKey, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to reserve global transform: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// ReleaseGlobalTransform decrements the monthly counter, floored at zero
func (r *postgresRepository) ReleaseGlobalTransform(ctx context.Context, monthKey string) error {
	query := `
		UPDATE %sglobal_transform_usage
		SET transforms_used = GREATEST(transforms_used - 1, 0), updated_at = $2
		WHERE month_key = $1
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), monthKey, time.Now())
	if err != nil {
		return fmt.Errorf("failed to release global transform: %w", err)
	}
	return nil
}

// CreateFile inserts a new file record
func (r *postgresRepository) CreateFile(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO %sfiles
			(id, user_id, storage_key, name, size_bytes, media_type, source,
			 expires_at, origin_message_id, origin_provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query),
		file.ID, file.UserID, file.StorageKey, file.Name, file.SizeBytes,
		file.MediaType, file.Source, file.ExpiresAt, file.OriginMessageID,
		file.OriginProvider, file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// FindFileByID retrieves a file by its ID
func (r *postgresRepository) FindFileByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `
		SELECT id, user_id, storage_key, name, size_bytes, media_type, source,
		       expires_at, origin_message_id, origin_provider, created_at
		FROM %sfiles
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	var file models.File
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), id).StructScan(&file)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &file, nil
}

// DeleteFile permanently deletes a file record
func (r *postgresRepository) DeleteFile(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM %sfiles
		WHERE id = $1
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// TotalSizeByUser returns the summed size of a user's files
func (r *postgresRepository) TotalSizeByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(size_bytes), 0)
		FROM %sfiles
		WHERE user_id = $1
	`

	exec := r.getExecutor(ctx)
	var totalSize int64
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), userID).Scan(&totalSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get total size: %w", err)
	}
	return totalSize, nil
}

// CountFilesByUser returns how many files a user currently has
func (r *postgresRepository) CountFilesByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM %sfiles
		WHERE user_id = $1
	`

	exec := r.getExecutor(ctx)
	var count int
	err := exec.QueryRowxContext(ctx, r.prefixSchema(query), userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}

// FindFilesByUser retrieves all of a user's files
func (r *postgresRepository) FindFilesByUser(ctx context.Context, userID uuid.UUID) ([]*models.File, error) {
	query := `
		SELECT id, user_id, storage_key, name, size_bytes, media_type, source,
		       expires_at, origin_message_id, origin_provider, created_at
		FROM %sfiles
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	var files []*models.File
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &files, r.prefixSchema(query), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find files by user: %w", err)
	}
	return files, nil
}

// UpdateFileExpiry sets or clears a file's expiry timestamp
func (r *postgresRepository) UpdateFileExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error {
	query := `
		UPDATE %sfiles
		SET expires_at = $1
		WHERE id = $2
	`

	exec := r.getExecutor(ctx)
	_, err := exec.ExecContext(ctx, r.prefixSchema(query), expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update file expiry: %w", err)
	}
	return nil
}

// FindExpiredFiles returns up to limit expired files, oldest-expiring first so
// the most overdue files are cleared first under sustained backlog.
func (r *postgresRepository) FindExpiredFiles(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	query := `
		SELECT id, user_id, storage_key, name, size_bytes, media_type, source,
		       expires_at, origin_message_id, origin_provider, created_at
		FROM %sfiles
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	var files []*models.File
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &files, r.prefixSchema(query), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired files: %w", err)
	}
	return files, nil
}
