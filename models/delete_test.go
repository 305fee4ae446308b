package models

import (
	"context"
	"errors"
	"testing"

	"gallery/db"
	"gallery/errs"
	"gallery/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend refuses every delete
type failingBackend struct {
	*storage.DiskStorage
}

func (f failingBackend) Delete(ctx context.Context, key string) error {
	return errors.New("bucket unreachable")
}

func count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Instance.Model(model).Count(&n).Error)
	return n
}

func TestPlanAlbumDeletion(t *testing.T) {
	setupDB(t)
	a := mustAlbum(t, "A", RootAlbumID, "")
	b := mustAlbum(t, "B", a.ID, "")
	c := mustAlbum(t, "C", a.ID, "")
	d := mustAlbum(t, "D", b.ID, "")
	other := mustAlbum(t, "Other", RootAlbumID, "")
	mustPhoto(t, d.ID, "d.jpg", 1)
	mustPhoto(t, other.ID, "other.jpg", 1)

	plan, err := PlanAlbumDeletion(a.ID)
	require.NoError(t, err)
	require.Len(t, plan.Levels, 3)
	assert.Equal(t, []uint64{a.ID}, plan.Levels[0])
	assert.ElementsMatch(t, []uint64{b.ID, c.ID}, plan.Levels[1])
	assert.Equal(t, []uint64{d.ID}, plan.Levels[2])
	assert.Len(t, plan.Photos, 1)

	assert.Equal(t, int64(5), count(t, &Album{}), "planning changes nothing")
}

func TestDeleteAlbumTreeLeavesNoOrphans(t *testing.T) {
	private := setupDB(t)
	ctx := context.Background()
	a := mustAlbum(t, "A", RootAlbumID, "")
	b := mustAlbum(t, "B", a.ID, "")
	c := mustAlbum(t, "C", b.ID, "")
	keep := mustAlbum(t, "Keep", RootAlbumID, "")

	photos := []Photo{
		mustPhoto(t, a.ID, "a.jpg", 1),
		mustPhoto(t, b.ID, "b.jpg", 2, hidden),
		mustPhoto(t, c.ID, "c.jpg", 3),
	}
	for _, p := range photos {
		require.NoError(t, private.Put(ctx, p.StorageKey, []byte("x"), "image/jpeg"))
	}
	kept := mustPhoto(t, keep.ID, "keep.jpg", 4)
	require.NoError(t, private.Put(ctx, kept.StorageKey, []byte("x"), "image/jpeg"))

	role, err := CreateRole("family", "")
	require.NoError(t, err)
	require.NoError(t, GrantAlbum(role.ID, b.ID))
	require.NoError(t, GrantAlbum(role.ID, keep.ID))
	_, err = GrantUser(c.ID, "friend@example.com")
	require.NoError(t, err)
	_, _, err = ToggleLike(photos[2].ID, "friend@example.com", "")
	require.NoError(t, err)

	plan, err := DeleteAlbumTree(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, plan.AlbumIDs, 3)

	assert.Equal(t, int64(1), count(t, &Album{}))
	assert.Equal(t, int64(1), count(t, &Photo{}))
	assert.Equal(t, int64(1), count(t, &RoleAlbumAccess{}))
	assert.Zero(t, count(t, &AlbumPermission{}))
	assert.Zero(t, count(t, &PhotoLike{}))

	total, err := private.TotalStoredBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "only the kept object remains")

	_, err = DeleteAlbumTree(ctx, a.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteAlbumTreeSwallowsStorageErrors(t *testing.T) {
	private := setupDB(t)
	storage.Register(failingBackend{private})
	a := mustAlbum(t, "A", RootAlbumID, "")
	mustPhoto(t, a.ID, "a.jpg", 1)
	mustPhoto(t, a.ID, "b.jpg", 2)

	_, err := DeleteAlbumTree(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Zero(t, count(t, &Album{}))
	assert.Zero(t, count(t, &Photo{}))
}

func TestDeleteEmptyAlbums(t *testing.T) {
	setupDB(t)
	a := mustAlbum(t, "A", RootAlbumID, "")
	aChild := mustAlbum(t, "Empty Child", a.ID, "")
	mustAlbum(t, "Empty Grandchild", aChild.ID, "")
	b := mustAlbum(t, "B", RootAlbumID, "")
	bChild := mustAlbum(t, "Full Child", b.ID, "")
	mustPhoto(t, bChild.ID, "x.jpg", 1)
	c := mustAlbum(t, "C", RootAlbumID, "")
	mustPhoto(t, c.ID, "hidden.jpg", 1, hidden)
	role, err := CreateRole("family", "")
	require.NoError(t, err)
	require.NoError(t, GrantAlbum(role.ID, a.ID))

	deleted, err := DeleteEmptyAlbums()
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	var left []string
	require.NoError(t, db.Instance.Model(&Album{}).Order("name").Pluck("name", &left).Error)
	assert.Equal(t, []string{"B", "C", "Full Child"}, left)
	assert.Zero(t, count(t, &RoleAlbumAccess{}))

	deleted, err = DeleteEmptyAlbums()
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestAlbumPhotosRecursive(t *testing.T) {
	setupDB(t)
	a := mustAlbum(t, "A", RootAlbumID, "")
	b := mustAlbum(t, "B", a.ID, "")
	c := mustAlbum(t, "C", b.ID, "")
	p1 := mustPhoto(t, a.ID, "1.jpg", 1)
	p2 := mustPhoto(t, c.ID, "2.jpg", 2)
	mustPhoto(t, b.ID, "hidden.jpg", 3, hidden)

	photos, err := AlbumPhotosRecursive(a.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, p2.ID, photos[0].ID)
	assert.Equal(t, p1.ID, photos[1].ID)
}
