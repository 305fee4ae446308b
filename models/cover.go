package models

import (
	"gallery/db"
	"gallery/storage"
)

type Cover struct {
	PhotoID  uint64           `json:"photo_id"`
	Key      string           `json:"key"`
	Provider storage.Provider `json:"provider"`
}

func coverOf(p Photo) Cover {
	return Cover{PhotoID: p.ID, Key: p.StorageKey, Provider: p.StorageProvider}
}

// ResolveCovers picks a cover for each album: the explicit cover photo when it
// still exists and is not hidden, otherwise the earliest visible upload among
// the album's own photos and its direct children's photos. Albums without a
// candidate are absent from the result. The number of queries does not depend
// on len(albums).
func ResolveCovers(albums []Album) (map[uint64]Cover, error) {
	covers := make(map[uint64]Cover, len(albums))
	if len(albums) == 0 {
		return covers, nil
	}

	var explicitIDs []uint64
	for _, a := range albums {
		if a.CoverPhotoID != nil {
			explicitIDs = append(explicitIDs, *a.CoverPhotoID)
		}
	}
	explicit := make(map[uint64]Photo, len(explicitIDs))
	if len(explicitIDs) > 0 {
		var photos []Photo
		err := db.Instance.Select("id", "album_id", "storage_key", "storage_provider").
			Where("id IN ? AND visibility <> ?", explicitIDs, PhotoHidden).
			Find(&photos).Error
		if err != nil {
			return nil, err
		}
		for _, p := range photos {
			explicit[p.ID] = p
		}
	}

	needing := make(map[uint64]bool)
	var needingIDs []uint64
	for _, a := range albums {
		if a.CoverPhotoID != nil {
			if p, ok := explicit[*a.CoverPhotoID]; ok {
				covers[a.ID] = coverOf(p)
				continue
			}
		}
		if !needing[a.ID] {
			needing[a.ID] = true
			needingIDs = append(needingIDs, a.ID)
		}
	}
	if len(needingIDs) == 0 {
		return covers, nil
	}

	var children []Album
	if err := db.Instance.Select("id", "parent_id").Where("parent_id IN ?", needingIDs).Find(&children).Error; err != nil {
		return nil, err
	}
	parentOf := make(map[uint64]uint64, len(children))
	sourceIDs := append([]uint64{}, needingIDs...)
	for _, c := range children {
		parentOf[c.ID] = c.ParentID
		sourceIDs = append(sourceIDs, c.ID)
	}

	var candidates []Photo
	err := db.Instance.Select("id", "album_id", "storage_key", "storage_provider", "uploaded_at").
		Where("album_id IN ? AND visibility <> ?", sourceIDs, PhotoHidden).
		Order("uploaded_at ASC, id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	// Candidates come oldest first, so the first one seen for an album wins
	for _, p := range candidates {
		if needing[p.AlbumID] {
			if _, done := covers[p.AlbumID]; !done {
				covers[p.AlbumID] = coverOf(p)
			}
		}
		if parent, ok := parentOf[p.AlbumID]; ok && needing[parent] {
			if _, done := covers[parent]; !done {
				covers[parent] = coverOf(p)
			}
		}
	}
	return covers, nil
}
