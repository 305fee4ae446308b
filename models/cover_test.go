package models

import (
	"context"
	"testing"

	"gallery/db"
	"gallery/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countQueries(t *testing.T) *int {
	t.Helper()
	n := new(int)
	cb := func(*gorm.DB) { *n++ }
	require.NoError(t, db.Instance.Callback().Query().After("gorm:query").Register("test:count_queries", cb))
	return n
}

func TestResolveCovers(t *testing.T) {
	setupDB(t)
	withExplicit := mustAlbum(t, "Explicit", RootAlbumID, AlbumPublic)
	withOwn := mustAlbum(t, "Own", RootAlbumID, AlbumPublic)
	withChild := mustAlbum(t, "Parent", RootAlbumID, AlbumPublic)
	child := mustAlbum(t, "Child", withChild.ID, AlbumPublic)
	grandchild := mustAlbum(t, "Grandchild", child.ID, AlbumPublic)
	deepOnly := mustAlbum(t, "Deep", RootAlbumID, AlbumPublic)
	deepChild := mustAlbum(t, "Deep Child", deepOnly.ID, AlbumPublic)
	deepGrandchild := mustAlbum(t, "Deep Grandchild", deepChild.ID, AlbumPublic)
	empty := mustAlbum(t, "Empty", RootAlbumID, AlbumPublic)

	mustPhoto(t, withExplicit.ID, "first.jpg", 100)
	chosen := mustPhoto(t, withExplicit.ID, "chosen.jpg", 900)
	_, err := SetAlbumCover(withExplicit.ID, &chosen.ID)
	require.NoError(t, err)

	mustPhoto(t, withOwn.ID, "hidden-oldest.jpg", 10, hidden)
	ownOldest := mustPhoto(t, withOwn.ID, "oldest.jpg", 20)
	mustPhoto(t, withOwn.ID, "newer.jpg", 30)

	mustPhoto(t, withChild.ID, "parent.jpg", 500)
	childOldest := mustPhoto(t, child.ID, "child.jpg", 200)
	mustPhoto(t, grandchild.ID, "grandchild.jpg", 1)

	mustPhoto(t, deepGrandchild.ID, "too-deep.jpg", 1)

	albums := []Album{}
	for _, id := range []uint64{withExplicit.ID, withOwn.ID, withChild.ID, child.ID, deepOnly.ID, empty.ID} {
		a, err := GetAlbum(id)
		require.NoError(t, err)
		albums = append(albums, a)
	}

	queries := countQueries(t)
	covers, err := ResolveCovers(albums)
	require.NoError(t, err)
	assert.Equal(t, 3, *queries, "explicit covers, children, candidates")

	assert.Equal(t, chosen.ID, covers[withExplicit.ID].PhotoID)
	assert.Equal(t, ownOldest.ID, covers[withOwn.ID].PhotoID, "hidden photos are never covers")
	assert.Equal(t, childOldest.ID, covers[withChild.ID].PhotoID, "earliest among own and direct children's photos")
	assert.Equal(t, storage.ProviderR2, covers[withChild.ID].Provider)
	// child itself falls back to its own photo plus its grandchild's one
	assert.Equal(t, "grandchild.jpg", photoFilename(t, covers[child.ID].PhotoID))
	_, ok := covers[deepOnly.ID]
	assert.False(t, ok, "only one level of descendants is searched")
	_, ok = covers[empty.ID]
	assert.False(t, ok)
}

func TestResolveCoversDanglingExplicit(t *testing.T) {
	private := setupDB(t)
	album := mustAlbum(t, "Travel", RootAlbumID, AlbumPublic)
	fallback := mustPhoto(t, album.ID, "fallback.jpg", 100)
	cover := mustPhoto(t, album.ID, "cover.jpg", 200)
	_, err := SetAlbumCover(album.ID, &cover.ID)
	require.NoError(t, err)
	require.NoError(t, private.Put(context.Background(), cover.StorageKey, []byte("x"), "image/jpeg"))

	require.NoError(t, DeletePhoto(context.Background(), cover.ID))
	album, err = GetAlbum(album.ID)
	require.NoError(t, err)
	require.NotNil(t, album.CoverPhotoID, "the pointer is weak and left dangling")

	covers, err := ResolveCovers([]Album{album})
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, covers[album.ID].PhotoID)

	// A hidden explicit cover falls back as well
	hiddenCover := mustPhoto(t, album.ID, "hidden.jpg", 50, hidden)
	album, err = SetAlbumCover(album.ID, &hiddenCover.ID)
	require.NoError(t, err)
	covers, err = ResolveCovers([]Album{album})
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, covers[album.ID].PhotoID)
}

func TestResolveCoversNoAlbums(t *testing.T) {
	setupDB(t)
	queries := countQueries(t)
	covers, err := ResolveCovers(nil)
	require.NoError(t, err)
	assert.Empty(t, covers)
	assert.Zero(t, *queries)
}

func photoFilename(t *testing.T, id uint64) string {
	t.Helper()
	p, err := GetPhoto(id)
	require.NoError(t, err)
	return p.Filename
}
