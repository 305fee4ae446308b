package cache

import (
	"context"
	"fmt"
)

// Mutation names a kind of write. Every write path invalidates through
// InvalidateFor so the tags it affects are declared in one place.
type Mutation string

const (
	AlbumCreated           Mutation = "album.created"
	AlbumRenamed           Mutation = "album.renamed"
	AlbumVisibilityChanged Mutation = "album.visibility_changed"
	AlbumCoverChanged      Mutation = "album.cover_changed"
	AlbumDeleted           Mutation = "album.deleted"
	EmptyAlbumsDeleted     Mutation = "album.empty_deleted"
	PhotoAdded             Mutation = "photo.added"
	PhotoMoved             Mutation = "photo.moved"
	PhotoDeleted           Mutation = "photo.deleted"
	PhotoCaptioned         Mutation = "photo.captioned"
	PhotoLiked             Mutation = "photo.liked"
	PhotosReordered        Mutation = "photo.reordered"
	LibrarySynced          Mutation = "library.synced"
	LibraryDeduplicated    Mutation = "library.deduplicated"
	RoleCreated            Mutation = "role.created"
	RoleDeleted            Mutation = "role.deleted"
	RoleMembersChanged     Mutation = "role.members_changed"
	AlbumGrantsChanged     Mutation = "album.grants_changed"
)

var invalidates = map[Mutation][]Tag{
	AlbumCreated:           {TagAlbums},
	AlbumRenamed:           {TagAlbums},
	AlbumVisibilityChanged: {TagAlbums},
	AlbumCoverChanged:      {TagAlbums},
	// Photos and grants of the whole subtree go with it
	AlbumDeleted:        {TagAlbums, TagPhotos, TagRoles},
	EmptyAlbumsDeleted:  {TagAlbums, TagRoles},
	PhotoAdded:          {TagPhotos, TagAlbums},
	PhotoMoved:          {TagPhotos, TagAlbums},
	PhotoDeleted:        {TagPhotos, TagAlbums},
	PhotoCaptioned:      {TagPhotos},
	PhotoLiked:          {TagPhotos},
	PhotosReordered:     {TagPhotos},
	LibrarySynced:       {TagAlbums, TagPhotos},
	LibraryDeduplicated: {TagPhotos, TagAlbums},
	RoleCreated:         {TagRoles},
	RoleDeleted:         {TagRoles},
	RoleMembersChanged:  {TagRoles},
	AlbumGrantsChanged:  {TagRoles, TagAlbums},
}

// Mutations lists every declared mutation
var Mutations = []Mutation{
	AlbumCreated, AlbumRenamed, AlbumVisibilityChanged, AlbumCoverChanged, AlbumDeleted, EmptyAlbumsDeleted,
	PhotoAdded, PhotoMoved, PhotoDeleted, PhotoCaptioned, PhotoLiked, PhotosReordered,
	LibrarySynced, LibraryDeduplicated,
	RoleCreated, RoleDeleted, RoleMembersChanged, AlbumGrantsChanged,
}

func TagsFor(m Mutation) []Tag {
	return invalidates[m]
}

// InvalidateFor drops every cached entry the mutation may have changed
func InvalidateFor(ctx context.Context, m Mutation) error {
	tags, ok := invalidates[m]
	if !ok {
		return fmt.Errorf("no cache tags declared for mutation %q", m)
	}
	return Invalidate(ctx, tags...)
}
