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
	"github.com/lumen-chat/lumen/internal/clock"
	"github.com/lumen-chat/lumen/storage/models"
	storageRepository "github.com/lumen-chat/lumen/storage/repository"
)

// RetentionService recomputes file expiry timestamps when a user's retention
// policy changes, for example on a tier change. It derives retention from the
// same effective-policy computation as file creation and the expiry sweep, so
// the three can never disagree about what "expired" means.
type RetentionService struct {
	repo     storageRepository.Repository
	policies *PolicyService
	clock    clock.Clock
}

// NewRetentionService creates a new retention service
func NewRetentionService(repo storageRepository.Repository, policies *PolicyService, clk clock.Clock) *RetentionService {
	return &RetentionService{
		repo:     repo,
		policies: policies,
		clock:    clk,
	}
}

// RecomputeRetention walks the user's files and rewrites their expiry under
// the current effective policy.
//
// Unlimited retention (vip) clears every set expiry. Otherwise each file gets
// max(createdAt+retention, now+graceDays): the grace floor keeps a policy
// tightening from expiring already-old files immediately, giving them at
// least graceDays of runway instead. Rows whose stored expiry already matches
// are skipped.
func (s *RetentionService) RecomputeRetention(ctx context.Context, userID uuid.UUID, graceDays int) (models.RetentionResult, error) {
	policy, err := s.policies.ResolvePolicy(ctx, userID)
	if err != nil {
		return models.RetentionResult{}, err
	}

	files, err := s.repo.FindFilesByUser(ctx, userID)
	if err != nil {
		return models.RetentionResult{}, fmt.Errorf("failed to list files: %w", err)
	}

	result := models.RetentionResult{
		TotalFiles:    len(files),
		RetentionDays: policy.FileRetentionDays,
		GraceDays:     graceDays,
	}

	if policy.FileRetentionDays == nil {
		for _, file := range files {
			if file.ExpiresAt == nil {
				continue
			}
			if err := s.repo.UpdateFileExpiry(ctx, file.ID, nil); err != nil {
				return result, fmt.Errorf("failed to clear expiry: %w", err)
			}
			result.UpdatedFiles++
		}
		return result, nil
	}

	now := s.clock.Now()
	retention := time.Duration(*policy.FileRetentionDays) * 24 * time.Hour
	floor := now.Add(time.Duration(graceDays) * 24 * time.Hour)

	for _, file := range files {
		nextExpiry := file.CreatedAt.Add(retention)
		if nextExpiry.Before(floor) {
			nextExpiry = floor
		}

		if file.ExpiresAt != nil && file.ExpiresAt.Equal(nextExpiry) {
			continue
		}
		if err := s.repo.UpdateFileExpiry(ctx, file.ID, &nextExpiry); err != nil {
			return result, fmt.Errorf("failed to update expiry: %w", err)
		}
		result.UpdatedFiles++
	}
	return result, nil
}
