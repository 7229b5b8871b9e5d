// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"

	uuid "github.com/gofrs/uuid"
	"github.com/lumen-chat/lumen/internal/clock"
	platformconfig "github.com/lumen-chat/lumen/internal/platform/config"
	"github.com/lumen-chat/lumen/storage/models"
	storageRepository "github.com/lumen-chat/lumen/storage/repository"
)

// PolicyService resolves the effective storage policy for a user by merging
// the persisted per-user row with system-wide hard caps and defaults.
type PolicyService struct {
	repo   storageRepository.Repository
	config *platformconfig.StorageConfig
	clock  clock.Clock
}

// NewPolicyService creates a new policy service
func NewPolicyService(repo storageRepository.Repository, config *platformconfig.StorageConfig, clk clock.Clock) *PolicyService {
	return &PolicyService{
		repo:   repo,
		config: config,
		clock:  clk,
	}
}

func (s *PolicyService) defaults() models.PolicyDefaults {
	return models.PolicyDefaults{
		StorageBytes:             s.config.DefaultStorageBytes,
		MaxFilesPerMessage:       s.config.DefaultMaxFilesPerMessage,
		MaxMessageFilesBytes:     s.config.DefaultMaxMessageFilesBytes,
		FileRetentionDays:        s.config.DefaultFileRetentionDays,
		ImageTransformLimitTotal: 0,
	}
}

// GetOrCreatePolicy returns the user's stored policy row, creating it with
// defaults on first access.
func (s *PolicyService) GetOrCreatePolicy(ctx context.Context, userID uuid.UUID) (*models.StoragePolicy, error) {
	policy, err := s.repo.GetOrCreatePolicy(ctx, userID, s.defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve policy: %w", err)
	}
	return policy, nil
}

// ResolvePolicy returns the effective (clamped) policy for a user.
func (s *PolicyService) ResolvePolicy(ctx context.Context, userID uuid.UUID) (models.EffectivePolicy, error) {
	row, err := s.GetOrCreatePolicy(ctx, userID)
	if err != nil {
		return models.EffectivePolicy{}, err
	}
	return s.Effective(row), nil
}

// Effective clamps a stored policy row against the system hard caps.
func (s *PolicyService) Effective(row *models.StoragePolicy) models.EffectivePolicy {
	return models.Effective(row, s.config.SystemMaxStorageBytes, s.config.DefaultFileRetentionDays)
}

// GlobalMonthlyStats ensures the current month's usage row exists with the
// live configured limit and returns the derived stats.
func (s *PolicyService) GlobalMonthlyStats(ctx context.Context) (models.GlobalTransformStats, error) {
	monthKey := models.MonthKey(s.clock.Now())
	usage, err := s.repo.EnsureGlobalUsage(ctx, monthKey, s.config.GlobalMonthlyTransformLimit)
	if err != nil {
		return models.GlobalTransformStats{}, fmt.Errorf("failed to load global monthly stats: %w", err)
	}

	remaining := usage.TransformsLimit - usage.TransformsUsed
	if remaining < 0 {
		remaining = 0
	}
	return models.GlobalTransformStats{
		Used:      usage.TransformsUsed,
		Limit:     usage.TransformsLimit,
		Remaining: remaining,
	}, nil
}

// SetTier changes a user's tier and reports the stored row afterwards. The
// policy row is created first when missing so a tier change on a never-seen
// user does not fail.
func (s *PolicyService) SetTier(ctx context.Context, userID uuid.UUID, tier string) (*models.StoragePolicy, error) {
	if tier != models.TierFree && tier != models.TierVIP {
		return nil, fmt.Errorf("unknown tier: %q", tier)
	}

	if _, err := s.GetOrCreatePolicy(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.SetTier(ctx, userID, tier); err != nil {
		return nil, fmt.Errorf("failed to change tier: %w", err)
	}
	return s.GetOrCreatePolicy(ctx, userID)
}
