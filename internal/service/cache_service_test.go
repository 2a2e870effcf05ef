package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{ err error }

func (f failingCacheRepo) Get(context.Context, string, interface{}) error { return f.err }
func (f failingCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return f.err
}
func (f failingCacheRepo) DeleteByPattern(context.Context, string) error { return f.err }

func TestStudentDashboardKey(t *testing.T) {
	assert.Equal(t, "dash:student:S1:2024-05-06:000000000000000c", StudentDashboardKey("S1", "2024-05-06", 12))
}

func TestCacheServiceDisabledIsInert(t *testing.T) {
	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())

	repo := newFakeCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.data)
	assert.Zero(t, repo.gets)
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := newFakeCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	var got int
	hit, err := cache.Get(ctx, "dash:student:S1:d:v1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "dash:student:S1:d:v1", 42, 0))
	require.NoError(t, cache.Set(ctx, "other", 7, 0))
	hit, err = cache.Get(ctx, "dash:student:S1:d:v1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, got)

	require.NoError(t, cache.InvalidateDashboards(ctx))
	assert.Equal(t, []string{"other"}, keysOf(repo.data))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	boom := errors.New("redis down")
	cache := NewCacheService(failingCacheRepo{err: boom}, nil, time.Minute, nil, true)

	hit, err := cache.Get(context.Background(), "k", new(int))
	assert.False(t, hit)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, cache.Set(context.Background(), "k", 1, 0), boom)
	assert.ErrorIs(t, cache.InvalidateDashboards(context.Background()), boom)
}

func keysOf(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
