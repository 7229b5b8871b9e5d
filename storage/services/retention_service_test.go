package services_test

import (
	"context"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-chat/lumen/internal/clock"
	"github.com/lumen-chat/lumen/storage/models"
	"github.com/lumen-chat/lumen/storage/services"
)

func newRetentionFixture(t *testing.T) (*fakeRepository, *services.RetentionService, *clock.Fake) {
	t.Helper()
	repo := newFakeRepository()
	cfg := testStorageConfig()
	clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	policies := services.NewPolicyService(repo, cfg, clk)
	retention := services.NewRetentionService(repo, policies, clk)
	return repo, retention, clk
}

func addUserFile(repo *fakeRepository, userID uuid.UUID, createdAt time.Time, expiresAt *time.Time) uuid.UUID {
	id := uuid.Must(uuid.NewV4())
	repo.addFile(&models.File{
		ID:         id,
		UserID:     userID,
		StorageKey: "users/" + userID.String() + "/" + id.String(),
		Name:       "f.bin",
		SizeBytes:  10,
		MediaType:  "application/octet-stream",
		Source:     models.SourceUpload,
		ExpiresAt:  expiresAt,
		CreatedAt:  createdAt,
	})
	return id
}

func TestRecomputeRetention_GraceFloorProtectsOldFiles(t *testing.T) {
	repo, retention, clk := newRetentionFixture(t)
	userID := uuid.Must(uuid.NewV4())
	now := clk.Now()

	// Policy tightens to 7-day retention. A 30-day-old file would already be
	// past createdAt+7d; the 7-day grace floor gives it now+7d instead.
	repo.setPolicy(&models.StoragePolicy{
		UserID:               userID,
		Tier:                 models.TierFree,
		StorageBytes:         20 * 1024 * 1024,
		MaxFilesPerMessage:   10,
		MaxMessageFilesBytes: 1000 * 1024 * 1024,
		FileRetentionDays:    intPtr(7),
	})

	oldExpiry := now.Add(24 * time.Hour)
	oldID := addUserFile(repo, userID, now.Add(-30*24*time.Hour), &oldExpiry)
	freshID := addUserFile(repo, userID, now, nil)

	result, err := retention.RecomputeRetention(context.Background(), userID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 2, result.UpdatedFiles)
	require.NotNil(t, result.RetentionDays)
	assert.Equal(t, 7, *result.RetentionDays)

	oldFile, err := repo.FindFileByID(context.Background(), oldID)
	require.NoError(t, err)
	require.NotNil(t, oldFile.ExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), *oldFile.ExpiresAt)

	// The fresh file is past the floor, so it gets createdAt+retention.
	freshFile, err := repo.FindFileByID(context.Background(), freshID)
	require.NoError(t, err)
	require.NotNil(t, freshFile.ExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), *freshFile.ExpiresAt)
}

func TestRecomputeRetention_LongRetentionBeatsGraceFloor(t *testing.T) {
	repo, retention, clk := newRetentionFixture(t)
	userID := uuid.Must(uuid.NewV4())
	now := clk.Now()

	// Default 30-day retention on a fresh file: createdAt+30d is later than
	// now+7d, so the grace floor does not apply.
	seedPolicy(repo, userID, intPtr(0))
	fileID := addUserFile(repo, userID, now, nil)

	result, err := retention.RecomputeRetention(context.Background(), userID, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedFiles)

	file, err := repo.FindFileByID(context.Background(), fileID)
	require.NoError(t, err)
	require.NotNil(t, file.ExpiresAt)
	assert.Equal(t, now.Add(30*24*time.Hour), *file.ExpiresAt)
}

func TestRecomputeRetention_VIPClearsExpiries(t *testing.T) {
	repo, retention, clk := newRetentionFixture(t)
	userID := uuid.Must(uuid.NewV4())
	now := clk.Now()

	repo.setPolicy(&models.StoragePolicy{
		UserID:               userID,
		Tier:                 models.TierVIP,
		StorageBytes:         20 * 1024 * 1024,
		MaxFilesPerMessage:   10,
		MaxMessageFilesBytes: 1000 * 1024 * 1024,
		FileRetentionDays:    intPtr(30),
	})

	expiry := now.Add(24 * time.Hour)
	expiringID := addUserFile(repo, userID, now.Add(-time.Hour), &expiry)
	foreverID := addUserFile(repo, userID, now.Add(-time.Hour), nil)

	result, err := retention.RecomputeRetention(context.Background(), userID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 1, result.UpdatedFiles)
	assert.Nil(t, result.RetentionDays)

	for _, id := range []uuid.UUID{expiringID, foreverID} {
		file, err := repo.FindFileByID(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, file.ExpiresAt)
	}
}

func TestRecomputeRetention_SkipsAlreadyCorrectRows(t *testing.T) {
	repo, retention, clk := newRetentionFixture(t)
	userID := uuid.Must(uuid.NewV4())
	now := clk.Now()

	seedPolicy(repo, userID, intPtr(0))
	correct := now.Add(30 * 24 * time.Hour)
	addUserFile(repo, userID, now, &correct)

	result, err := retention.RecomputeRetention(context.Background(), userID, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFiles)
	assert.Equal(t, 0, result.UpdatedFiles)
}
