// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// File source values
const (
	SourceUpload    = "upload"
	SourceAssistant = "assistant"
)

// File represents a stored attachment record in the database.
// Invariant: a File row exists if and only if a blob exists under StorageKey,
// outside the brief window a compensating rollback is in flight.
type File struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"userId"`
	StorageKey      string     `db:"storage_key" json:"storageKey"`
	Name            string     `db:"name" json:"name"`
	SizeBytes       int64      `db:"size_bytes" json:"sizeBytes"`
	MediaType       string     `db:"media_type" json:"mediaType"`
	Source          string     `db:"source" json:"source"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	OriginMessageID *uuid.UUID `db:"origin_message_id" json:"originMessageId,omitempty"`
	OriginProvider  *string    `db:"origin_provider" json:"originProvider,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}
