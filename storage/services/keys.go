// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"fmt"

	uuid "github.com/gofrs/uuid"
)

// Cache key builders. Both caches are best-effort: a failed invalidation is
// logged and tolerated because the TTL bounds staleness.

func statsCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("storage:stats:%s", userID)
}

func contentCacheKey(storageKey string) string {
	return fmt.Sprintf("storage:content:%s", storageKey)
}
