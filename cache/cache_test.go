package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	SetStore(s)
	t.Cleanup(func() { SetStore(NewMemoryStore()) })
	return s, &now
}

func counting(calls *int, v view) func() (view, error) {
	return func() (view, error) {
		*calls++
		return v, nil
	}
}

func TestCachedHitAndMiss(t *testing.T) {
	newTestStore(t)
	ctx := context.Background()
	calls := 0
	loader := counting(&calls, view{Name: "travel"})

	v, err := Cached(ctx, "album:travel", ViewTTL, []Tag{TagAlbums, TagPhotos}, loader)
	require.NoError(t, err)
	assert.Equal(t, "travel", v.Name)
	v, err = Cached(ctx, "album:travel", ViewTTL, []Tag{TagPhotos, TagAlbums}, loader)
	require.NoError(t, err)
	assert.Equal(t, "travel", v.Name)
	assert.Equal(t, 1, calls, "tag order does not matter")

	_, err = Cached(ctx, "album:italy", ViewTTL, []Tag{TagAlbums}, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestColdAndWarmResultsMatch(t *testing.T) {
	newTestStore(t)
	ctx := context.Background()
	calls := 0
	// nil and empty slices encode differently, callers must not see the difference
	loader := counting(&calls, view{Name: "empty"})

	cold, err := Cached(ctx, "k", ViewTTL, []Tag{TagAlbums}, loader)
	require.NoError(t, err)
	warm, err := Cached(ctx, "k", ViewTTL, []Tag{TagAlbums}, loader)
	require.NoError(t, err)
	assert.Equal(t, cold, warm)
	assert.Equal(t, 1, calls)
}

func TestInvalidateByTag(t *testing.T) {
	newTestStore(t)
	ctx := context.Background()
	albumCalls, roleCalls := 0, 0

	load := func() {
		_, err := Cached(ctx, "albums", ViewTTL, []Tag{TagAlbums}, counting(&albumCalls, view{}))
		require.NoError(t, err)
		_, err = Cached(ctx, "roles", ViewTTL, []Tag{TagRoles}, counting(&roleCalls, view{}))
		require.NoError(t, err)
	}
	load()
	load()
	assert.Equal(t, 1, albumCalls)
	assert.Equal(t, 1, roleCalls)

	require.NoError(t, Invalidate(ctx, TagAlbums))
	load()
	assert.Equal(t, 2, albumCalls)
	assert.Equal(t, 1, roleCalls, "untouched tags keep their entries")

	require.NoError(t, InvalidateFor(ctx, RoleMembersChanged))
	load()
	assert.Equal(t, 2, albumCalls)
	assert.Equal(t, 2, roleCalls)
}

func TestTTLExpiry(t *testing.T) {
	_, now := newTestStore(t)
	ctx := context.Background()
	calls := 0
	loader := counting(&calls, view{})

	_, err := Cached(ctx, "lookup", LookupTTL, []Tag{TagPhotos}, loader)
	require.NoError(t, err)
	*now = now.Add(LookupTTL - time.Second)
	_, err = Cached(ctx, "lookup", LookupTTL, []Tag{TagPhotos}, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	*now = now.Add(2 * time.Second)
	_, err = Cached(ctx, "lookup", LookupTTL, []Tag{TagPhotos}, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoaderErrorsAreNotCached(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("db down")
	_, err := Cached(ctx, "k", ViewTTL, []Tag{TagAlbums}, func() (view, error) { return view{}, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.Len())
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (brokenStore) Incr(context.Context, string) (int64, error)    { return 0, errors.New("down") }
func (brokenStore) Counter(context.Context, string) (int64, error) { return 0, errors.New("down") }

func TestStoreFailureFallsThrough(t *testing.T) {
	SetStore(brokenStore{})
	t.Cleanup(func() { SetStore(NewMemoryStore()) })
	calls := 0
	v, err := Cached(context.Background(), "k", ViewTTL, []Tag{TagAlbums}, counting(&calls, view{Name: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "x", v.Name)
	assert.Equal(t, 1, calls)
}

func TestSweepRemovesExpired(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "old", []byte("1"), time.Second))
	*now = now.Add(time.Minute)
	for i := 0; i < sweepEvery; i++ {
		require.NoError(t, s.Set(ctx, "fresh", []byte("1"), time.Hour))
	}
	assert.Equal(t, 1, s.Len())
}

func TestEveryMutationInvalidatesSomething(t *testing.T) {
	assert.Len(t, invalidates, len(Mutations))
	for _, m := range Mutations {
		assert.NotEmpty(t, TagsFor(m), m)
	}
	assert.Error(t, InvalidateFor(context.Background(), Mutation("unknown")))
	assert.ElementsMatch(t, []Tag{TagAlbums, TagPhotos, TagRoles}, TagsFor(AlbumDeleted))
}
