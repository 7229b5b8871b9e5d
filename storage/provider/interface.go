// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"time"
)

// BlobProvider defines the interface for blob storage backends.
// This interface is provider-agnostic, allowing easy switching between
// Cloudflare R2, AWS S3, Google Cloud Storage, etc. The blob store is dumb
// byte storage: it has no transactional guarantees of its own, so everything
// spanning it and the database is coordinated with compensating actions.
type BlobProvider interface {
	// Put uploads bytes under the given key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves a blob's bytes. A missing key returns (nil, nil).
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete physically removes the blob. Deleting a missing key is not an
	// error (idempotent), which keeps retry and rollback paths simple.
	Delete(ctx context.Context, key string) error

	// GeneratePresignedDownloadURL generates a URL for the frontend to
	// view/download the file (GET). For public files this may be a CDN URL.
	GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
