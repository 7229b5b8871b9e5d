// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/lumen-chat/lumen/internal/cache"
	"github.com/lumen-chat/lumen/internal/clock"
	"github.com/lumen-chat/lumen/internal/pkg/log"
	"github.com/lumen-chat/lumen/storage/models"
	"github.com/lumen-chat/lumen/storage/provider"
	storageRepository "github.com/lumen-chat/lumen/storage/repository"
)

// SweepOptions bound one sweep execution.
type SweepOptions struct {
	BatchSize  int
	MaxRuntime time.Duration
}

// SweepService deletes expired files from both backends in bounded batches.
// The time budget is cooperative: it is checked between items, not enforced
// mid-item, so a slow blob delete can overrun it slightly.
type SweepService struct {
	repo     storageRepository.Repository
	provider provider.BlobProvider
	cache    cache.Cache
	clock    clock.Clock
}

// NewSweepService creates a new expiry sweep service
func NewSweepService(repo storageRepository.Repository, blobProvider provider.BlobProvider, kv cache.Cache, clk clock.Clock) *SweepService {
	return &SweepService{
		repo:     repo,
		provider: blobProvider,
		cache:    kv,
		clock:    clk,
	}
}

// SweepExpired runs one bounded batch over the expired files.
//
// Per file: the blob is deleted first. A blob-delete failure leaves the row
// in place so the next run retries it; deleting metadata for a blob the
// system failed to remove would orphan a blob it can no longer account for.
// A row-delete failure after a successful blob delete aborts the batch and
// propagates, because a deleted blob with a surviving row is the one
// inconsistency this job cannot self-heal.
func (s *SweepService) SweepExpired(ctx context.Context, opts SweepOptions) (models.SweepResult, error) {
	started := s.clock.Now()

	files, err := s.repo.FindExpiredFiles(ctx, started, opts.BatchSize)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("failed to select expired files: %w", err)
	}

	result := models.SweepResult{SelectedCount: len(files)}
	affectedUsers := make(map[uuid.UUID]struct{})
	timedOut := false

	for _, file := range files {
		if opts.MaxRuntime > 0 && s.clock.Now().Sub(started) >= opts.MaxRuntime {
			timedOut = true
			break
		}

		if err := s.provider.Delete(ctx, file.StorageKey); err != nil {
			log.Error("sweep blob delete failed: key=%s err=%v", file.StorageKey, err)
			result.FailedCount++
			continue
		}

		// Best-effort: staleness here is bounded by the cache TTL.
		if err := s.cache.Delete(ctx, contentCacheKey(file.StorageKey)); err != nil {
			log.Warn("sweep content cache invalidation failed: key=%s err=%v", file.StorageKey, err)
		}

		if err := s.repo.DeleteFile(ctx, file.ID); err != nil {
			result.Runtime = s.clock.Now().Sub(started)
			return result, fmt.Errorf("failed to delete file record after blob delete: %w", err)
		}

		result.DeletedCount++
		affectedUsers[file.UserID] = struct{}{}
	}

	// One stats invalidation per distinct user, not per file, to bound the
	// cache traffic under large batches.
	for userID := range affectedUsers {
		if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
			log.Warn("sweep stats cache invalidation failed: user=%s err=%v", userID, err)
		}
	}

	result.HasMore = timedOut || len(files) == opts.BatchSize
	result.Runtime = s.clock.Now().Sub(started)
	return result, nil
}
