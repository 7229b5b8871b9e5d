// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/lumen-chat/lumen/internal/cache"
	"github.com/lumen-chat/lumen/internal/pkg/log"
	"github.com/lumen-chat/lumen/storage/provider"
)

// ContentService converts stored binary content to an inline data URL for
// model consumption, cached with a short TTL and invalidated on delete.
type ContentService struct {
	provider provider.BlobProvider
	cache    cache.Cache
	ttl      time.Duration
}

// NewContentService creates a new content service
func NewContentService(blobProvider provider.BlobProvider, kv cache.Cache, ttl time.Duration) *ContentService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ContentService{
		provider: blobProvider,
		cache:    kv,
		ttl:      ttl,
	}
}

// ToInlineContent returns a base64 data URL for the blob under storageKey,
// reading through the KV cache.
func (s *ContentService) ToInlineContent(ctx context.Context, storageKey string, mediaType string) (string, error) {
	key := contentCacheKey(storageKey)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		return string(cached), nil
	}

	data, err := s.provider.Get(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read blob: %w", err)
	}
	if data == nil {
		return "", ErrFileNotFound
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))

	if err := s.cache.Set(ctx, key, []byte(dataURL), s.ttl); err != nil {
		log.Warn("content cache set failed: key=%s err=%v", storageKey, err)
	}
	return dataURL, nil
}

// InvalidateContentCache drops the cached inline representation. It never
// returns an error: a failed cache delete must not block the caller's
// delete or cleanup flow, and the TTL bounds any staleness.
func (s *ContentService) InvalidateContentCache(ctx context.Context, storageKey string) {
	if err := s.cache.Delete(ctx, contentCacheKey(storageKey)); err != nil {
		log.Warn("content cache invalidation failed: key=%s err=%v", storageKey, err)
	}
}
