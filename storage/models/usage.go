// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import "time"

// GlobalTransformUsage is the shared per-calendar-month transform counter,
// keyed by "YYYY-MM". Created lazily; its limit is refreshed from system
// configuration on every read so a config change takes effect immediately.
type GlobalTransformUsage struct {
	MonthKey        string    `db:"month_key" json:"monthKey"`
	TransformsUsed  int       `db:"transforms_used" json:"transformsUsed"`
	TransformsLimit int       `db:"transforms_limit" json:"transformsLimit"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// GlobalTransformStats is the derived view returned to callers.
type GlobalTransformStats struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// MonthKey formats t as the calendar-month key shared by all users.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
