package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-chat/lumen/internal/clock"
	"github.com/lumen-chat/lumen/storage/models"
	"github.com/lumen-chat/lumen/storage/services"
)

func newReservationFixture(t *testing.T) (*fakeRepository, *services.ReservationService, *clock.Fake) {
	t.Helper()
	repo := newFakeRepository()
	cfg := testStorageConfig()
	clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	policies := services.NewPolicyService(repo, cfg, clk)
	reservations := services.NewReservationService(repo, policies, cfg, clk)
	return repo, reservations, clk
}

func seedPolicy(repo *fakeRepository, userID uuid.UUID, transformLimit *int) {
	repo.setPolicy(&models.StoragePolicy{
		UserID:                   userID,
		Tier:                     models.TierFree,
		StorageBytes:             20 * 1024 * 1024,
		MaxFilesPerMessage:       10,
		MaxMessageFilesBytes:     1000 * 1024 * 1024,
		FileRetentionDays:        intPtr(30),
		ImageTransformLimitTotal: transformLimit,
		CreatedAt:                time.Now(),
		UpdatedAt:                time.Now(),
	})
}

func TestReserveTransformSlot_DisabledWhenLimitZero(t *testing.T) {
	repo, reservations, _ := newReservationFixture(t)
	userID := uuid.Must(uuid.NewV4())
	seedPolicy(repo, userID, intPtr(0))

	result, err := reservations.ReserveTransformSlot(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, result.Reserved)
	assert.Equal(t, models.ReasonDisabled, result.Reason)

	// Nothing was counted anywhere.
	policy, err := repo.GetOrCreatePolicy(context.Background(), userID, models.PolicyDefaults{})
	require.NoError(t, err)
	assert.Equal(t, 0, policy.ImageTransformUsedTotal)
}

func TestReserveTransformSlot_UserLimitExhausted(t *testing.T) {
	repo, reservations, _ := newReservationFixture(t)
	userID := uuid.Must(uuid.NewV4())
	seedPolicy(repo, userID, intPtr(2))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		result, err := reservations.ReserveTransformSlot(ctx, userID)
		require.NoError(t, err)
		require.True(t, result.Reserved)
	}

	result, err := reservations.ReserveTransformSlot(ctx, userID)
	require.NoError(t, err)
	assert.False(t, result.Reserved)
	assert.Equal(t, models.ReasonUserLimit, result.Reason)

	policy, err := repo.GetOrCreatePolicy(ctx, userID, models.PolicyDefaults{})
	require.NoError(t, err)
	assert.Equal(t, 2, policy.ImageTransformUsedTotal)
}

func TestReserveTransformSlot_GlobalLimitCompensatesUserCounter(t *testing.T) {
	repo, _, _ := newReservationFixture(t)
	cfg := testStorageConfig()
	cfg.GlobalMonthlyTransformLimit = 1
	clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	policies := services.NewPolicyService(repo, cfg, clk)
	reservations := services.NewReservationService(repo, policies, cfg, clk)

	userID := uuid.Must(uuid.NewV4())
	seedPolicy(repo, userID, intPtr(100))
	ctx := context.Background()

	first, err := reservations.ReserveTransformSlot(ctx, userID)
	require.NoError(t, err)
	require.True(t, first.Reserved)

	second, err := reservations.ReserveTransformSlot(ctx, userID)
	require.NoError(t, err)
	assert.False(t, second.Reserved)
	assert.Equal(t, models.ReasonGlobalLimit, second.Reason)

	// The failed attempt must be net-zero on the user counter.
	policy, err := repo.GetOrCreatePolicy(ctx, userID, models.PolicyDefaults{})
	require.NoError(t, err)
	assert.Equal(t, 1, policy.ImageTransformUsedTotal)
}

func TestReserveTransformSlot_ConcurrentNeverOversells(t *testing.T) {
	repo, reservations, _ := newReservationFixture(t)
	userID := uuid.Must(uuid.NewV4())
	seedPolicy(repo, userID, intPtr(5))

	const attempts = 20
	var wg sync.WaitGroup
	results := make([]models.ReservationResult, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reservations.ReserveTransformSlot(context.Background(), userID)
		}(i)
	}
	wg.Wait()

	reserved := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if results[i].Reserved {
			reserved++
		}
	}
	assert.Equal(t, 5, reserved)

	policy, err := repo.GetOrCreatePolicy(context.Background(), userID, models.PolicyDefaults{})
	require.NoError(t, err)
	assert.Equal(t, 5, policy.ImageTransformUsedTotal)
}

func TestReleaseTransformSlot_FlooredAtZero(t *testing.T) {
	repo, reservations, clk := newReservationFixture(t)
	userID := uuid.Must(uuid.NewV4())
	seedPolicy(repo, userID, intPtr(10))
	ctx := context.Background()

	result, err := reservations.ReserveTransformSlot(ctx, userID)
	require.NoError(t, err)
	require.True(t, result.Reserved)

	require.NoError(t, reservations.ReleaseTransformSlot(ctx, userID))
	// Releasing more than was reserved must not go negative.
	require.NoError(t, reservations.ReleaseTransformSlot(ctx, userID))

	policy, err := repo.GetOrCreatePolicy(ctx, userID, models.PolicyDefaults{})
	require.NoError(t, err)
	assert.Equal(t, 0, policy.ImageTransformUsedTotal)

	usage, err := repo.EnsureGlobalUsage(ctx, models.MonthKey(clk.Now()), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.TransformsUsed)
}
