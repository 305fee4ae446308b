package models

import (
	"errors"

	"gallery/db"
	"gallery/errs"

	"gorm.io/gorm"
)

// AlbumCard is an album as listed inside another view
type AlbumCard struct {
	Album
	Cover *Cover `json:"cover"`
}

type PhotoView struct {
	Photo
	LikedBy []string `json:"liked_by"`
}

// AlbumView is everything needed to render an album page and to decide
// whether the caller may see it
type AlbumView struct {
	Album       Album       `json:"album"`
	Breadcrumbs []Album     `json:"breadcrumbs"`
	Children    []AlbumCard `json:"children"`
	Photos      []PhotoView `json:"photos"`
	Grants      AlbumGrants `json:"grants"`
}

func (v *AlbumView) CanView(email string, isOwner bool) bool {
	return CanView(v.Album, v.Grants, email, isOwner)
}

// ResolveAlbumPath walks slugs from the root, one exact match per level, and
// assembles the terminal album's view. Children are filtered by visibility:
// the owner sees either the archived ones (wantArchived) or the others, anyone
// else sees public children only.
func ResolveAlbumPath(segments []string, isOwner, wantArchived bool) (*AlbumView, error) {
	if len(segments) == 0 {
		return nil, errs.NotFound("album not found")
	}
	view := &AlbumView{Breadcrumbs: make([]Album, 0, len(segments))}
	var parentID uint64 = RootAlbumID
	for _, slug := range segments {
		var album Album
		err := db.Instance.Where("parent_id = ? AND slug = ?", parentID, slug).Take(&album).Error
		// Some collations compare case-insensitively, the walk must not
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && album.Slug != slug) {
			return nil, errs.NotFound("album not found")
		}
		if err != nil {
			return nil, err
		}
		view.Breadcrumbs = append(view.Breadcrumbs, album)
		parentID = album.ID
	}
	view.Album = view.Breadcrumbs[len(view.Breadcrumbs)-1]

	var children []Album
	query := db.Instance.Where("parent_id = ?", view.Album.ID).Order("name ASC, id ASC")
	if isOwner {
		query = query.Scopes(ownerVisibility(wantArchived))
	} else {
		query = query.Where("visibility = ?", AlbumPublic)
	}
	if err := query.Find(&children).Error; err != nil {
		return nil, err
	}
	covers, err := ResolveCovers(children)
	if err != nil {
		return nil, err
	}
	view.Children = make([]AlbumCard, len(children))
	for i, c := range children {
		view.Children[i] = AlbumCard{Album: c}
		if cover, ok := covers[c.ID]; ok {
			view.Children[i].Cover = &cover
		}
	}

	var photos []Photo
	err = db.Instance.Where("album_id = ? AND visibility <> ?", view.Album.ID, PhotoHidden).Find(&photos).Error
	if err != nil {
		return nil, err
	}
	SortPhotos(photos)
	ids := make([]uint64, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	likers, err := photoLikers(db.Instance, ids)
	if err != nil {
		return nil, err
	}
	view.Photos = make([]PhotoView, len(photos))
	for i, p := range photos {
		view.Photos[i] = PhotoView{Photo: p, LikedBy: likers[p.ID]}
		if view.Photos[i].LikedBy == nil {
			view.Photos[i].LikedBy = []string{}
		}
	}

	if view.Grants, err = loadAlbumGrants(db.Instance, view.Album.ID); err != nil {
		return nil, err
	}
	return view, nil
}

// AlbumCards attaches covers to a list of albums
func AlbumCards(albums []Album) ([]AlbumCard, error) {
	covers, err := ResolveCovers(albums)
	if err != nil {
		return nil, err
	}
	cards := make([]AlbumCard, len(albums))
	for i, a := range albums {
		cards[i] = AlbumCard{Album: a}
		if cover, ok := covers[a.ID]; ok {
			cards[i].Cover = &cover
		}
	}
	return cards, nil
}
