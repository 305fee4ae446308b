package models

import (
	"errors"
	"strings"

	"gallery/db"
	"gallery/errs"

	"gorm.io/gorm"
)

type AlbumVisibility string

const (
	AlbumPublic   AlbumVisibility = "public"
	AlbumPrivate  AlbumVisibility = "private"
	AlbumArchived AlbumVisibility = "archived"

	RootAlbumID = 0
	// Sync places objects at the bucket root here
	GeneralAlbumName = "General"
	GeneralAlbumSlug = "general"

	maxAlbumDepth = 64
)

// Album is a node of the album tree. ParentID is a plain id (0 for top level
// albums), never an owning pointer, and is not enforced by a foreign key.
type Album struct {
	ID           uint64          `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(300);not null" json:"name"`
	Slug         string          `gorm:"type:varchar(300);not null;index:uniq_album_parent_slug,unique,priority:2" json:"slug"`
	ParentID     uint64          `gorm:"not null;default:0;index:uniq_album_parent_slug,unique,priority:1" json:"parent_id"`
	Visibility   AlbumVisibility `gorm:"type:varchar(20);not null;default:private" json:"visibility"`
	CoverPhotoID *uint64         `json:"cover_photo_id"` // may point to a deleted photo
	CreatedAt    int64           `gorm:"autoCreateTime:milli" json:"created_at"`
}

func ParseAlbumVisibility(s string) (AlbumVisibility, error) {
	switch v := AlbumVisibility(strings.ToLower(strings.TrimSpace(s))); v {
	case AlbumPublic, AlbumPrivate, AlbumArchived:
		return v, nil
	}
	return "", errs.Validation("visibility must be one of public, private, archived")
}

func GetAlbum(id uint64) (album Album, err error) {
	err = db.Instance.Take(&album, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return album, errs.NotFound("album not found")
	}
	return
}

// CreateAlbum adds an album under parentID, picking the first free slug
// (name, name-2, name-3...) among its siblings
func CreateAlbum(name string, parentID uint64, visibility AlbumVisibility) (album Album, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return album, errs.Validation("album name is required")
	}
	if visibility == "" {
		visibility = AlbumPrivate
	}
	if parentID != RootAlbumID {
		if _, err = GetAlbum(parentID); err != nil {
			return album, errs.NotFound("parent album not found")
		}
	}
	base := Slugify(name)
	var taken []string
	err = db.Instance.Model(&Album{}).
		Where("parent_id = ? AND (slug = ? OR slug LIKE ?)", parentID, base, base+"-%").
		Pluck("slug", &taken).Error
	if err != nil {
		return
	}
	album = Album{
		Name:       name,
		Slug:       nextFreeSlug(base, taken),
		ParentID:   parentID,
		Visibility: visibility,
	}
	// Two concurrent creates can pick the same slug, the unique index decides
	if err = db.Instance.Create(&album).Error; errs.IsDuplicate(err) {
		return album, errs.Conflict(err, "an album with this name was created concurrently, please retry")
	}
	return
}

// RenameAlbum changes the display name only. The slug, and with it every
// stored object key below the album, stays as it was.
func RenameAlbum(id uint64, name string) (album Album, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return album, errs.Validation("album name is required")
	}
	if album, err = GetAlbum(id); err != nil {
		return
	}
	album.Name = name
	err = db.Instance.Model(&album).Update("name", name).Error
	return
}

func SetAlbumVisibility(id uint64, visibility AlbumVisibility) (album Album, err error) {
	if album, err = GetAlbum(id); err != nil {
		return
	}
	album.Visibility = visibility
	err = db.Instance.Model(&album).Update("visibility", visibility).Error
	return
}

// SetAlbumCover points the album to any existing photo, nil clears it
func SetAlbumCover(id uint64, photoID *uint64) (album Album, err error) {
	if album, err = GetAlbum(id); err != nil {
		return
	}
	if photoID != nil {
		if _, err = GetPhoto(*photoID); err != nil {
			return
		}
	}
	album.CoverPhotoID = photoID
	err = db.Instance.Model(&album).Update("cover_photo_id", photoID).Error
	return
}

// AllAlbums is the flat list of every album, used to pick move targets
func AllAlbums() (albums []Album, err error) {
	err = db.Instance.Order("name ASC, id ASC").Find(&albums).Error
	return
}

// RootAlbums lists top level albums. The owner sees either the archive or
// everything else; other users see non-archived albums that are public or
// granted to them.
func RootAlbums(isOwner, wantArchived bool, email string) (albums []Album, err error) {
	query := db.Instance.Where("parent_id = ?", RootAlbumID).Order("name ASC, id ASC")
	if isOwner {
		query = query.Scopes(ownerVisibility(wantArchived))
	} else {
		granted, err := GrantedAlbumIDs(email)
		if err != nil {
			return nil, err
		}
		query = query.Where("visibility <> ?", AlbumArchived)
		if len(granted) > 0 {
			query = query.Where("visibility = ? OR id IN ?", AlbumPublic, granted)
		} else {
			query = query.Where("visibility = ?", AlbumPublic)
		}
	}
	err = query.Find(&albums).Error
	return
}

func ownerVisibility(wantArchived bool) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if wantArchived {
			return tx.Where("visibility = ?", AlbumArchived)
		}
		return tx.Where("visibility <> ?", AlbumArchived)
	}
}

// AlbumSlugPath returns the live chain of slugs from the root down to the album
func AlbumSlugPath(id uint64) ([]string, error) {
	var slugs []string
	for current := id; current != RootAlbumID; {
		if len(slugs) >= maxAlbumDepth {
			return nil, errs.Internal(errors.New("album tree is too deep or contains a cycle"))
		}
		album, err := GetAlbum(current)
		if err != nil {
			return nil, err
		}
		slugs = append(slugs, album.Slug)
		current = album.ParentID
	}
	for i, j := 0, len(slugs)-1; i < j; i, j = i+1, j-1 {
		slugs[i], slugs[j] = slugs[j], slugs[i]
	}
	return slugs, nil
}

// descendantLevels walks the tree breadth first, one indexed query per level.
// The first level is the album itself.
func descendantLevels(tx *gorm.DB, id uint64) ([][]uint64, error) {
	levels := [][]uint64{{id}}
	seen := map[uint64]bool{id: true}
	frontier := []uint64{id}
	for len(frontier) > 0 {
		var children []uint64
		if err := tx.Model(&Album{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		next := make([]uint64, 0, len(children))
		for _, c := range children {
			if !seen[c] {
				seen[c] = true
				next = append(next, c)
			}
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
		frontier = next
	}
	return levels, nil
}

func flatten(levels [][]uint64) (ids []uint64) {
	for _, level := range levels {
		ids = append(ids, level...)
	}
	return
}
