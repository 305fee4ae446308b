// Package maintenance holds the owner triggered library jobs: bucket sync and
// duplicate hiding. Both are safe to re-run after a partial failure.
package maintenance

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gallery/db"
	"gallery/errs"
	"gallery/logging"
	"gallery/models"
	"gallery/storage"

	"gorm.io/gorm"
)

type SyncResult struct {
	PhotosProcessed int `json:"photos_processed"`
	AlbumsCreated   int `json:"albums_created"`
	PhotosCreated   int `json:"photos_created"`
	PhotosUpdated   int `json:"photos_updated"`
}

// Reconcile makes the database reflect a listing of the private bucket.
// Folders become albums, found or created by slug under their parent, and
// every object gets a photo row. Existing rows only follow the object's size
// and folder; their visibility, caption and order are left alone.
func Reconcile(ctx context.Context, objects []storage.Object) (result SyncResult, err error) {
	albums := map[string]uint64{} // parent id + slug -> album id, for this run
	for _, obj := range objects {
		if err = ctx.Err(); err != nil {
			return
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		segments := strings.Split(obj.Key, "/")
		filename := segments[len(segments)-1]

		var albumID uint64
		if albumID, err = albumFor(segments[:len(segments)-1], albums, &result); err != nil {
			return
		}
		if err = upsertPhoto(obj, filename, albumID, &result); err != nil {
			return
		}
		result.PhotosProcessed++
	}
	logging.Info("Sync completed",
		logging.Int("processed", result.PhotosProcessed),
		logging.Int("albums_created", result.AlbumsCreated),
		logging.Int("photos_created", result.PhotosCreated),
		logging.Int("photos_updated", result.PhotosUpdated))
	return
}

// albumFor walks the folders top-down. Objects at the bucket root go to General.
func albumFor(folders []string, known map[string]uint64, result *SyncResult) (uint64, error) {
	parentID := uint64(models.RootAlbumID)
	for _, folder := range folders {
		if folder == "" {
			continue
		}
		id, err := findOrCreateAlbum(parentID, models.SyncSlug(folder), folder, known, result)
		if err != nil {
			return 0, err
		}
		parentID = id
	}
	if parentID == models.RootAlbumID {
		return findOrCreateAlbum(models.RootAlbumID, models.GeneralAlbumSlug, models.GeneralAlbumName, known, result)
	}
	return parentID, nil
}

func findOrCreateAlbum(parentID uint64, slug, name string, known map[string]uint64, result *SyncResult) (uint64, error) {
	cacheKey := strconv.FormatUint(parentID, 10) + "/" + slug
	if id, ok := known[cacheKey]; ok {
		return id, nil
	}
	album, err := takeAlbum(parentID, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		album = models.Album{Name: name, Slug: slug, ParentID: parentID, Visibility: models.AlbumPrivate}
		err = db.Instance.Create(&album).Error
		if errs.IsDuplicate(err) {
			// Created by a concurrent request in the meantime
			album, err = takeAlbum(parentID, slug)
		} else if err == nil {
			result.AlbumsCreated++
		}
	}
	if err != nil {
		return 0, err
	}
	known[cacheKey] = album.ID
	return album.ID, nil
}

// takeAlbum matches the slug exactly, also on collations that ignore case
func takeAlbum(parentID uint64, slug string) (album models.Album, err error) {
	var candidates []models.Album
	err = db.Instance.Where("parent_id = ? AND slug = ?", parentID, slug).Find(&candidates).Error
	if err != nil {
		return
	}
	for _, candidate := range candidates {
		if candidate.Slug == slug {
			return candidate, nil
		}
	}
	return album, gorm.ErrRecordNotFound
}

func upsertPhoto(obj storage.Object, filename string, albumID uint64, result *SyncResult) error {
	var existing models.Photo
	err := db.Instance.Select("id", "album_id", "file_size").
		Where("storage_provider = ? AND storage_key = ?", storage.ProviderR2, obj.Key).
		Take(&existing).Error
	if err == nil {
		if existing.AlbumID == albumID && existing.FileSize == obj.Size {
			return nil
		}
		result.PhotosUpdated++
		return db.Instance.Model(&models.Photo{}).Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"album_id": albumID, "file_size": obj.Size}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	photo := models.Photo{
		AlbumID:         albumID,
		Filename:        filename,
		StorageKey:      obj.Key,
		StorageProvider: storage.ProviderR2,
		FileSize:        obj.Size,
		Visibility:      models.PhotoVisible,
	}
	if err = db.Instance.Omit("Album").Create(&photo).Error; err != nil {
		return err
	}
	result.PhotosCreated++
	return nil
}
