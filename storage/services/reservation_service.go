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
	"github.com/lumen-chat/lumen/internal/pkg/log"
	platformconfig "github.com/lumen-chat/lumen/internal/platform/config"
	"github.com/lumen-chat/lumen/storage/models"
	storageRepository "github.com/lumen-chat/lumen/storage/repository"
)

// ReservationService reserves image-transform capacity across two independent
// counters: the user's lifetime budget and the shared monthly budget. The two
// counters live in separate rows with no shared transaction, so reservation is
// a forward-action/compensating-action pair: reserve the user counter, then
// the global one, and release the user counter when the global one is
// exhausted. A crash between the two steps leaves the user counter one high
// with no global reservation; subsequent releases only ever move the counters
// toward their true values, so the drift is bounded and accepted rather than
// reconciled.
type ReservationService struct {
	repo     storageRepository.Repository
	policies *PolicyService
	config   *platformconfig.StorageConfig
	clock    clock.Clock
}

// NewReservationService creates a new reservation service
func NewReservationService(repo storageRepository.Repository, policies *PolicyService, config *platformconfig.StorageConfig, clk clock.Clock) *ReservationService {
	return &ReservationService{
		repo:     repo,
		policies: policies,
		config:   config,
		clock:    clk,
	}
}

// ReserveTransformSlot reserves one transform slot for the user. It never
// returns a hard error for an exhausted budget: callers fall back to storing
// the untransformed original.
func (s *ReservationService) ReserveTransformSlot(ctx context.Context, userID uuid.UUID) (models.ReservationResult, error) {
	policy, err := s.policies.GetOrCreatePolicy(ctx, userID)
	if err != nil {
		return models.ReservationResult{}, err
	}

	// A limit of exactly 0 means transforms are switched off for this user;
	// no counter is touched.
	if policy.ImageTransformLimitTotal != nil && *policy.ImageTransformLimitTotal == 0 {
		return models.ReservationResult{Reserved: false, Reason: models.ReasonDisabled}, nil
	}

	used, limit, reserved, err := s.repo.TryReserveUserTransform(ctx, userID)
	if err != nil {
		return models.ReservationResult{}, fmt.Errorf("failed to reserve user slot: %w", err)
	}
	if !reserved {
		return models.ReservationResult{Reserved: false, Reason: models.ReasonUserLimit}, nil
	}

	monthKey := models.MonthKey(s.clock.Now())
	if _, err := s.repo.EnsureGlobalUsage(ctx, monthKey, s.config.GlobalMonthlyTransformLimit); err != nil {
		s.releaseUser(ctx, userID)
		return models.ReservationResult{}, fmt.Errorf("failed to ensure global usage row: %w", err)
	}

	globalReserved, err := s.repo.TryReserveGlobalTransform(ctx, monthKey)
	if err != nil {
		s.releaseUser(ctx, userID)
		return models.ReservationResult{}, fmt.Errorf("failed to reserve global slot: %w", err)
	}
	if !globalReserved {
		// Compensate: the user reservation must not stick when the shared
		// budget rejects the transform.
		s.releaseUser(ctx, userID)
		return models.ReservationResult{Reserved: false, Reason: models.ReasonGlobalLimit}, nil
	}

	return models.ReservationResult{Reserved: true, Used: used, Limit: limit}, nil
}

// ReleaseTransformSlot releases a previously reserved slot on both counters,
// floored at zero. Used by transform-failure fallback paths.
func (s *ReservationService) ReleaseTransformSlot(ctx context.Context, userID uuid.UUID) error {
	var firstErr error
	if err := s.repo.ReleaseUserTransform(ctx, userID); err != nil {
		firstErr = fmt.Errorf("failed to release user slot: %w", err)
	}
	monthKey := models.MonthKey(s.clock.Now())
	if err := s.repo.ReleaseGlobalTransform(ctx, monthKey); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to release global slot: %w", err)
	}
	return firstErr
}

// releaseUser undoes a user-counter reservation during the saga; its own
// failure is logged but never masks the outcome the caller already has.
func (s *ReservationService) releaseUser(ctx context.Context, userID uuid.UUID) {
	if err := s.repo.ReleaseUserTransform(ctx, userID); err != nil {
		log.Error("compensating release of user transform slot failed: user=%s err=%v", userID, err)
	}
}
