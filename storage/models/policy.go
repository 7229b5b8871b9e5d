// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// Storage tiers
const (
	TierFree = "free"
	TierVIP  = "vip"
)

// StoragePolicy is the persisted per-user quota row. It is created lazily on
// first access and never deleted while the user exists.
type StoragePolicy struct {
	UserID                   uuid.UUID `db:"user_id" json:"userId"`
	Tier                     string    `db:"tier" json:"tier"`
	StorageBytes             int64     `db:"storage_bytes" json:"storageBytes"`
	MaxFilesPerMessage       int       `db:"max_files_per_message" json:"maxFilesPerMessage"`
	MaxMessageFilesBytes     int64     `db:"max_message_files_bytes" json:"maxMessageFilesBytes"`
	FileRetentionDays        *int      `db:"file_retention_days" json:"fileRetentionDays,omitempty"`
	ImageTransformLimitTotal *int      `db:"image_transform_limit_total" json:"imageTransformLimitTotal,omitempty"`
	ImageTransformUsedTotal  int       `db:"image_transform_used_total" json:"imageTransformUsedTotal"`
	CreatedAt                time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time `db:"updated_at" json:"updatedAt"`
}

// PolicyDefaults are the values inserted on first access for a user.
type PolicyDefaults struct {
	StorageBytes             int64
	MaxFilesPerMessage       int
	MaxMessageFilesBytes     int64
	FileRetentionDays        int
	ImageTransformLimitTotal int
}

// EffectivePolicy is the derived policy actually enforced: the stored row
// clamped against system hard caps. Nil FileRetentionDays means unlimited
// retention.
type EffectivePolicy struct {
	Tier                     string `json:"tier"`
	MaxStorageBytes          int64  `json:"maxStorageBytes"`
	MaxFilesPerMessage       int    `json:"maxFilesPerMessage"`
	MaxMessageFilesBytes     int64  `json:"maxMessageFilesBytes"`
	FileRetentionDays        *int   `json:"fileRetentionDays,omitempty"`
	ImageTransformLimitTotal *int   `json:"imageTransformLimitTotal,omitempty"`
	ImageTransformUsedTotal  int    `json:"imageTransformUsedTotal"`
}

// Effective derives the enforced policy from a stored row. It is a pure
// function shared by request handlers, the retention recomputer, and the
// expiry sweep so they can never disagree about what "expired" means.
//
// MaxStorageBytes is clamped to systemHardCap. VIP users keep files forever
// regardless of the stored retention value; for everyone else a missing
// retention falls back to defaultRetentionDays, floored at zero.
func Effective(row *StoragePolicy, systemHardCap int64, defaultRetentionDays int) EffectivePolicy {
	maxStorage := row.StorageBytes
	if systemHardCap > 0 && maxStorage > systemHardCap {
		maxStorage = systemHardCap
	}

	var retention *int
	if row.Tier != TierVIP {
		days := defaultRetentionDays
		if row.FileRetentionDays != nil {
			days = *row.FileRetentionDays
		}
		if days < 0 {
			days = 0
		}
		retention = &days
	}

	return EffectivePolicy{
		Tier:                     row.Tier,
		MaxStorageBytes:          maxStorage,
		MaxFilesPerMessage:       row.MaxFilesPerMessage,
		MaxMessageFilesBytes:     row.MaxMessageFilesBytes,
		FileRetentionDays:        retention,
		ImageTransformLimitTotal: row.ImageTransformLimitTotal,
		ImageTransformUsedTotal:  row.ImageTransformUsedTotal,
	}
}

// ExpiryFor computes the expiry timestamp a newly created file gets under
// this policy, or nil when retention is unlimited.
func (p EffectivePolicy) ExpiryFor(now time.Time) *time.Time {
	if p.FileRetentionDays == nil {
		return nil
	}
	t := now.Add(time.Duration(*p.FileRetentionDays) * 24 * time.Hour)
	return &t
}
