// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/lumen-chat/lumen/internal/cache"
	"github.com/lumen-chat/lumen/internal/clock"
	platformconfig "github.com/lumen-chat/lumen/internal/platform/config"
	"github.com/lumen-chat/lumen/internal/pkg/log"
	"github.com/lumen-chat/lumen/storage/models"
	"github.com/lumen-chat/lumen/storage/provider"
	storageRepository "github.com/lumen-chat/lumen/storage/repository"
)

// PersistInput describes a file to persist.
type PersistInput struct {
	UserID    uuid.UUID
	Name      string
	MediaType string
	Bytes     []byte
	Source    string

	// QuotaSizeBytes overrides the size charged against the quota; zero means
	// charge the actual byte length. Transformed images charge the original
	// size so a transform never changes what the user pays for.
	QuotaSizeBytes int64

	OriginMessageID *uuid.UUID
	OriginProvider  *string
}

// FileService coordinates file persistence across the blob store and the
// relational store. The two backends share no transaction, so every write
// sequence is strictly ordered (blob put, row insert, quota post-check, cache
// invalidation) and each failure path only ever needs to undo steps already
// completed.
type FileService struct {
	repo     storageRepository.Repository
	provider provider.BlobProvider
	cache    cache.Cache
	policies *PolicyService
	config   *platformconfig.StorageConfig
	clock    clock.Clock
}

// NewFileService creates a new file persistence service
func NewFileService(repo storageRepository.Repository, blobProvider provider.BlobProvider, kv cache.Cache, policies *PolicyService, config *platformconfig.StorageConfig, clk clock.Clock) *FileService {
	return &FileService{
		repo:     repo,
		provider: blobProvider,
		cache:    kv,
		policies: policies,
		config:   config,
		clock:    clk,
	}
}

// PersistFile writes the bytes to the blob store and the metadata row to the
// database, with compensating rollback on either leg's failure and an
// authoritative quota re-check after the insert.
func (s *FileService) PersistFile(ctx context.Context, input PersistInput) (*models.File, error) {
	policy, err := s.policies.ResolvePolicy(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	quotaSize := input.QuotaSizeBytes
	if quotaSize == 0 {
		quotaSize = int64(len(input.Bytes))
	}

	// Optimistic pre-check. Cheap but not authoritative under concurrent
	// uploads; the post-insert re-check below is what actually holds the line.
	usage, err := s.repo.TotalSizeByUser(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage usage: %w", err)
	}
	if usage+quotaSize > policy.MaxStorageBytes {
		return nil, ErrQuotaExceeded
	}

	now := s.clock.Now()
	expiresAt := policy.ExpiryFor(now)

	fileID := uuid.Must(uuid.NewV4())
	ext := filepath.Ext(input.Name)
	storageKey := fmt.Sprintf("users/%s/%s%s", input.UserID, fileID, ext)

	// Blob first: on failure nothing is persisted and nothing needs rollback.
	if err := s.provider.Put(ctx, storageKey, input.Bytes, input.MediaType); err != nil {
		log.Error("blob write failed: key=%s err=%v", storageKey, err)
		return nil, ErrStorageBackend
	}

	file := &models.File{
		ID:              fileID,
		UserID:          input.UserID,
		StorageKey:      storageKey,
		Name:            input.Name,
		SizeBytes:       quotaSize,
		MediaType:       input.MediaType,
		Source:          input.Source,
		ExpiresAt:       expiresAt,
		OriginMessageID: input.OriginMessageID,
		OriginProvider:  input.OriginProvider,
		CreatedAt:       now,
	}

	if err := s.repo.CreateFile(ctx, file); err != nil {
		// Compensate: delete the just-written blob so the failed insert does
		// not leave an unaccounted blob behind. A failed compensation is
		// logged, never allowed to mask the original error.
		log.Error("metadata insert failed: key=%s err=%v", storageKey, err)
		if delErr := s.provider.Delete(ctx, storageKey); delErr != nil {
			log.Error("compensating blob delete failed: key=%s err=%v", storageKey, delErr)
		}
		return nil, ErrMetadataWrite
	}

	// Authoritative post-check: a concurrent upload may have won the
	// pre-check race. The loser rolls back both writes.
	usageAfter, err := s.repo.TotalSizeByUser(ctx, input.UserID)
	if err != nil {
		log.Error("post-insert usage read failed: key=%s err=%v", storageKey, err)
		s.rollbackPersist(ctx, file)
		return nil, ErrMetadataWrite
	}
	if usageAfter > policy.MaxStorageBytes {
		s.rollbackPersist(ctx, file)
		return nil, ErrQuotaExceeded
	}

	s.InvalidateStorageStatsCache(ctx, input.UserID)
	return file, nil
}

// rollbackPersist undoes a completed persist: row first, blob second, so a
// failure midway leaves at worst a DB-less blob, never a blob-less row.
func (s *FileService) rollbackPersist(ctx context.Context, file *models.File) {
	if err := s.repo.DeleteFile(ctx, file.ID); err != nil {
		log.Error("rollback row delete failed: fileID=%s err=%v", file.ID, err)
	}
	if err := s.provider.Delete(ctx, file.StorageKey); err != nil {
		log.Error("rollback blob delete failed: key=%s err=%v", file.StorageKey, err)
	}
}

// DeleteFile removes an owned file from both backends and invalidates the
// dependent caches.
func (s *FileService) DeleteFile(ctx context.Context, fileID uuid.UUID, userID uuid.UUID) error {
	file, err := s.repo.FindFileByID(ctx, fileID)
	if err != nil {
		return ErrFileNotFound
	}
	if file.UserID != userID {
		return ErrNotFileOwner
	}

	if err := s.provider.Delete(ctx, file.StorageKey); err != nil {
		log.Error("blob delete failed: key=%s err=%v", file.StorageKey, err)
		return ErrStorageBackend
	}

	s.invalidateContent(ctx, file.StorageKey)

	if err := s.repo.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	s.InvalidateStorageStatsCache(ctx, userID)
	return nil
}

// FindOwnedFile loads a file record and verifies the caller owns it.
func (s *FileService) FindOwnedFile(ctx context.Context, fileID uuid.UUID, userID uuid.UUID) (*models.File, error) {
	file, err := s.repo.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, ErrFileNotFound
	}
	if file.UserID != userID {
		return nil, ErrNotFileOwner
	}
	return file, nil
}

// GetFileURL returns a presigned (or CDN) download URL for an owned file.
func (s *FileService) GetFileURL(ctx context.Context, fileID uuid.UUID, userID uuid.UUID) (string, error) {
	file, err := s.repo.FindFileByID(ctx, fileID)
	if err != nil {
		return "", ErrFileNotFound
	}
	if file.UserID != userID {
		return "", ErrNotFileOwner
	}

	url, err := s.provider.GeneratePresignedDownloadURL(ctx, file.StorageKey, 24*time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to generate file URL: %w", err)
	}
	return url, nil
}

// StorageStats returns the user's storage summary, served from the stats
// cache when fresh.
func (s *FileService) StorageStats(ctx context.Context, userID uuid.UUID) (models.StorageStats, error) {
	key := statsCacheKey(userID)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var stats models.StorageStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return stats, nil
		}
	}

	policy, err := s.policies.ResolvePolicy(ctx, userID)
	if err != nil {
		return models.StorageStats{}, err
	}
	used, err := s.repo.TotalSizeByUser(ctx, userID)
	if err != nil {
		return models.StorageStats{}, fmt.Errorf("failed to read storage usage: %w", err)
	}
	count, err := s.repo.CountFilesByUser(ctx, userID)
	if err != nil {
		return models.StorageStats{}, fmt.Errorf("failed to count files: %w", err)
	}

	stats := models.StorageStats{
		UsedBytes:       used,
		FileCount:       count,
		MaxStorageBytes: policy.MaxStorageBytes,
	}

	if encoded, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.config.StatsCacheTTL); err != nil {
			log.Warn("stats cache set failed: user=%s err=%v", userID, err)
		}
	}
	return stats, nil
}

// InvalidateStorageStatsCache drops the user's cached storage summary.
// Cache failures are logged, never propagated.
func (s *FileService) InvalidateStorageStatsCache(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		log.Warn("stats cache invalidation failed: user=%s err=%v", userID, err)
	}
}

func (s *FileService) invalidateContent(ctx context.Context, storageKey string) {
	if err := s.cache.Delete(ctx, contentCacheKey(storageKey)); err != nil {
		log.Warn("content cache invalidation failed: key=%s err=%v", storageKey, err)
	}
}
