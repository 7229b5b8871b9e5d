// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import "time"

// ReservationReason explains a failed transform-slot reservation.
type ReservationReason string

const (
	// ReasonDisabled means the user's transform limit is 0.
	ReasonDisabled ReservationReason = "disabled"

	// ReasonUserLimit means the per-user lifetime budget is exhausted.
	ReasonUserLimit ReservationReason = "user-limit"

	// ReasonGlobalLimit means the shared monthly budget is exhausted.
	ReasonGlobalLimit ReservationReason = "global-limit"
)

// ReservationResult is the outcome of a transform-slot reservation.
// "No slot available" is an expected, frequent outcome on the hot path, so it
// is modeled as a tagged result rather than an error.
type ReservationResult struct {
	Reserved bool              `json:"reserved"`
	Reason   ReservationReason `json:"reason,omitempty"`
	Used     int               `json:"used,omitempty"`
	Limit    *int              `json:"limit,omitempty"`
}

// RetentionResult reports a retention recomputation pass for one user.
type RetentionResult struct {
	TotalFiles    int  `json:"totalFiles"`
	UpdatedFiles  int  `json:"updatedFiles"`
	RetentionDays *int `json:"retentionDays,omitempty"`
	GraceDays     int  `json:"graceDays"`
}

// SweepResult reports one bounded execution of the expiry sweep.
// HasMore signals the scheduler to run again soon.
type SweepResult struct {
	SelectedCount int           `json:"selectedCount"`
	DeletedCount  int           `json:"deletedCount"`
	FailedCount   int           `json:"failedCount"`
	HasMore       bool          `json:"hasMore"`
	Runtime       time.Duration `json:"runtimeMs"`
}

// StorageStats is the cached per-user storage summary.
type StorageStats struct {
	UsedBytes       int64 `json:"usedBytes"`
	FileCount       int   `json:"fileCount"`
	MaxStorageBytes int64 `json:"maxStorageBytes"`
}
