package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type snapshotStub struct {
	Commit   string
	Concepts int
}

func TestInMemoryCacheManager_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[snapshotStub]("snapshots", DefaultExpiration, DefaultCleanupInterval)

	_, ok := cache.Get(ctx, "abc")
	require.False(t, ok)

	want := snapshotStub{Commit: "abc", Concepts: 3}
	cache.Set(ctx, "abc", want, 0)

	got, ok := cache.Get(ctx, "abc")
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Equal(t, Stats{Hits: 1, Misses: 1, Items: 1}, cache.Stats())
}

func TestInMemoryCacheManager_WrongType(t *testing.T) {
	cache := NewInMemoryCacheManager[string]("test", DefaultExpiration, DefaultCleanupInterval)
	cache.cache.Set("k", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "k")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := NewInMemoryCacheManager[string]("test", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get(context.Background(), "k")
	require.False(t, ok)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string]("test", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "a", "1", NoExpiration)
	cache.Set(ctx, "b", "2", NoExpiration)
	cache.Set(ctx, "c", "3", NoExpiration)

	require.NoError(t, cache.Delete(ctx))
	require.NoError(t, cache.Delete(ctx, "a"))
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 2, cache.Stats().Items)

	require.NoError(t, cache.Flush(ctx))
	require.Equal(t, 0, cache.Stats().Items)
}

type loaderMock struct {
	mock.Mock
}

func (m *loaderMock) load(ctx context.Context, ref string) (snapshotStub, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(snapshotStub), args.Error(1)
}

func TestReadThroughCache_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	loader := &loaderMock{}
	loader.On("load", ctx, "main").Return(snapshotStub{Commit: "abc"}, nil).Once()

	cache := NewInMemoryCacheManager[snapshotStub]("snapshots", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[snapshotStub, string](cache, loader.load, false)

	got, hit, err := rt.Get(ctx, "abc", "main", DefaultExpiration)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "abc", got.Commit)

	got, hit, err = rt.Get(ctx, "abc", "main", DefaultExpiration)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "abc", got.Commit)

	loader.AssertExpectations(t)
}

func TestReadThroughCache_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	loader := &loaderMock{}
	loader.On("load", ctx, "main").Return(snapshotStub{}, boom).Once()
	loader.On("load", ctx, "main").Return(snapshotStub{Commit: "abc"}, nil).Once()

	cache := NewInMemoryCacheManager[snapshotStub]("snapshots", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[snapshotStub, string](cache, loader.load, false)

	_, _, err := rt.Get(ctx, "abc", "main", DefaultExpiration)
	require.ErrorIs(t, err, boom)

	got, hit, err := rt.Get(ctx, "abc", "main", DefaultExpiration)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "abc", got.Commit)
	loader.AssertExpectations(t)
}

func TestReadThroughCache_SkipCache(t *testing.T) {
	ctx := context.Background()
	loader := &loaderMock{}
	loader.On("load", ctx, "main").Return(snapshotStub{Commit: "abc"}, nil).Twice()

	cache := NewInMemoryCacheManager[snapshotStub]("snapshots", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[snapshotStub, string](cache, loader.load, true)

	for range 2 {
		_, hit, err := rt.Get(ctx, "abc", "main", DefaultExpiration)
		require.NoError(t, err)
		require.False(t, hit)
	}
	require.Equal(t, 0, cache.Stats().Items)
	loader.AssertExpectations(t)
}
