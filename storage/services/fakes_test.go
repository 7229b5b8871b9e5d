package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	uuid "github.com/gofrs/uuid"
	platformconfig "github.com/lumen-chat/lumen/internal/platform/config"
	"github.com/lumen-chat/lumen/storage/models"
)

// fakeRepository is an in-memory Repository with the same conditional-update
// semantics as the Postgres implementation.
type fakeRepository struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*models.StoragePolicy
	global   map[string]*models.GlobalTransformUsage
	files    map[uuid.UUID]*models.File

	failCreateFile bool
	failDeleteFile bool

	// afterCreate runs after a successful insert, outside the lock. Used to
	// simulate a concurrent upload winning the pre-check race.
	afterCreate func()
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		policies: make(map[uuid.UUID]*models.StoragePolicy),
		global:   make(map[string]*models.GlobalTransformUsage),
		files:    make(map[uuid.UUID]*models.File),
	}
}

func (r *fakeRepository) GetOrCreatePolicy(ctx context.Context, userID uuid.UUID, defaults models.PolicyDefaults) (*models.StoragePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.policies[userID]; ok {
		cp := *p
		return &cp, nil
	}
	retention := defaults.FileRetentionDays
	limit := defaults.ImageTransformLimitTotal
	p := &models.StoragePolicy{
		UserID:                   userID,
		Tier:                     models.TierFree,
		StorageBytes:             defaults.StorageBytes,
		MaxFilesPerMessage:       defaults.MaxFilesPerMessage,
		MaxMessageFilesBytes:     defaults.MaxMessageFilesBytes,
		FileRetentionDays:        &retention,
		ImageTransformLimitTotal: &limit,
		CreatedAt:                time.Now(),
		UpdatedAt:                time.Now(),
	}
	r.policies[userID] = p
	cp := *p
	return &cp, nil
}

func (r *fakeRepository) setPolicy(p *models.StoragePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.UserID] = p
}

func (r *fakeRepository) SetTier(ctx context.Context, userID uuid.UUID, tier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[userID]
	if !ok {
		return fmt.Errorf("policy row not found for user %s", userID)
	}
	p.Tier = tier
	return nil
}

func (r *fakeRepository) TryReserveUserTransform(ctx context.Context, userID uuid.UUID) (int, *int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[userID]
	if !ok {
		return 0, nil, false, nil
	}
	if p.ImageTransformLimitTotal != nil && p.ImageTransformUsedTotal >= *p.ImageTransformLimitTotal {
		return 0, nil, false, nil
	}
	p.ImageTransformUsedTotal++
	var limit *int
	if p.ImageTransformLimitTotal != nil {
		l := *p.ImageTransformLimitTotal
		limit = &l
	}
	return p.ImageTransformUsedTotal, limit, true, nil
}

func (r *fakeRepository) ReleaseUserTransform(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.policies[userID]; ok && p.ImageTransformUsedTotal > 0 {
		p.ImageTransformUsedTotal--
	}
	return nil
}

func (r *fakeRepository) EnsureGlobalUsage(ctx context.Context, monthKey string, limit int) (*models.GlobalTransformUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.global[monthKey]
	if !ok {
		u = &models.GlobalTransformUsage{MonthKey: monthKey}
		r.global[monthKey] = u
	}
	u.TransformsLimit = limit
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (r *fakeRepository) TryReserveGlobalTransform(ctx context.Context, monthKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.global[monthKey]
	if !ok {
		return false, nil
	}
	if u.TransformsUsed >= u.TransformsLimit {
		return false, nil
	}
	u.TransformsUsed++
	return true, nil
}

func (r *fakeRepository) ReleaseGlobalTransform(ctx context.Context, monthKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.global[monthKey]; ok && u.TransformsUsed > 0 {
		u.TransformsUsed--
	}
	return nil
}

func (r *fakeRepository) CreateFile(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	if r.failCreateFile {
		r.mu.Unlock()
		return fmt.Errorf("insert rejected")
	}
	cp := *file
	r.files[file.ID] = &cp
	hook := r.afterCreate
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (r *fakeRepository) FindFileByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found")
	}
	cp := *f
	return &cp, nil
}

func (r *fakeRepository) DeleteFile(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDeleteFile {
		return fmt.Errorf("delete rejected")
	}
	delete(r.files, id)
	return nil
}

func (r *fakeRepository) TotalSizeByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, f := range r.files {
		if f.UserID == userID {
			total += f.SizeBytes
		}
	}
	return total, nil
}

func (r *fakeRepository) CountFilesByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, f := range r.files {
		if f.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepository) FindFilesByUser(ctx context.Context, userID uuid.UUID) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var files []*models.File
	for _, f := range r.files {
		if f.UserID == userID {
			cp := *f
			files = append(files, &cp)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
	return files, nil
}

func (r *fakeRepository) UpdateFileExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return fmt.Errorf("file not found")
	}
	f.ExpiresAt = expiresAt
	return nil
}

func (r *fakeRepository) FindExpiredFiles(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var files []*models.File
	for _, f := range r.files {
		if f.ExpiresAt != nil && !f.ExpiresAt.After(now) {
			cp := *f
			files = append(files, &cp)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ExpiresAt.Before(*files[j].ExpiresAt) })
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// fakeBlobProvider is an in-memory BlobProvider with injectable failures.
type fakeBlobProvider struct {
	mu    sync.Mutex
	blobs map[string][]byte

	failPut       bool
	failDeleteKey map[string]bool
}

func newFakeBlobProvider() *fakeBlobProvider {
	return &fakeBlobProvider{
		blobs:         make(map[string][]byte),
		failDeleteKey: make(map[string]bool),
	}
}

func (p *fakeBlobProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPut {
		return fmt.Errorf("put rejected")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	p.blobs[key] = cp
	return nil
}

func (p *fakeBlobProvider) Get(ctx context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.blobs[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (p *fakeBlobProvider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failDeleteKey[key] {
		return fmt.Errorf("delete rejected")
	}
	delete(p.blobs, key)
	return nil
}

func (p *fakeBlobProvider) GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return "https://blobs.example.com/" + key, nil
}

func (p *fakeBlobProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blobs)
}

func testStorageConfig() *platformconfig.StorageConfig {
	return &platformconfig.StorageConfig{
		SystemMaxStorageBytes:       100 * 1024 * 1024,
		DefaultStorageBytes:         20 * 1024 * 1024,
		DefaultMaxFilesPerMessage:   10,
		DefaultMaxMessageFilesBytes: 1000 * 1024 * 1024,
		DefaultFileRetentionDays:    30,
		GlobalMonthlyTransformLimit: 100,
		ContentCacheTTL:             5 * time.Minute,
		StatsCacheTTL:               10 * time.Minute,
	}
}

func (r *fakeRepository) addFile(f *models.File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.files[f.ID] = &cp
}

func (r *fakeRepository) fileCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// stepClock advances by step on every Now call, so loops that check a time
// budget observe elapsing time without sleeping.
type stepClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{current: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

func intPtr(v int) *int { return &v }
