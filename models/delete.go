package models

import (
	"context"
	"sync/atomic"

	"gallery/config"
	"gallery/db"
	"gallery/logging"
	"gallery/storage"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DeletionPlan is the full set of rows a recursive album delete removes
type DeletionPlan struct {
	// Levels[0] is the album itself, then its children, grandchildren...
	Levels   [][]uint64
	AlbumIDs []uint64
	Photos   []Photo
}

// PlanAlbumDeletion collects the album, all its descendants and their photos
// without changing anything
func PlanAlbumDeletion(albumID uint64) (*DeletionPlan, error) {
	if _, err := GetAlbum(albumID); err != nil {
		return nil, err
	}
	levels, err := descendantLevels(db.Instance, albumID)
	if err != nil {
		return nil, err
	}
	plan := &DeletionPlan{Levels: levels, AlbumIDs: flatten(levels)}
	err = db.Instance.Select("id", "album_id", "storage_key", "storage_provider").
		Where("album_id IN ?", plan.AlbumIDs).Find(&plan.Photos).Error
	return plan, err
}

// DeleteAlbumTree deletes the album with everything below it: first the stored
// objects (failures are logged, not fatal) then all rows in one transaction
func DeleteAlbumTree(ctx context.Context, albumID uint64) (*DeletionPlan, error) {
	plan, err := PlanAlbumDeletion(albumID)
	if err != nil {
		return nil, err
	}
	if failed := deleteObjects(ctx, plan.Photos); failed > 0 {
		logging.Warn("Album deleted with orphaned objects",
			logging.Uint64("album_id", albumID), logging.Int("failed", failed), logging.Int("objects", len(plan.Photos)))
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		if err := deleteAlbumRows(tx, plan.AlbumIDs); err != nil {
			return err
		}
		// Deepest level first so no parent is removed before its children
		for i := len(plan.Levels) - 1; i >= 0; i-- {
			if err := tx.Where("id IN ?", plan.Levels[i]).Delete(&Album{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return plan, err
}

// deleteAlbumRows removes what references the albums: likes, photos, grants
func deleteAlbumRows(tx *gorm.DB, albumIDs []uint64) error {
	photoIDs := tx.Model(&Photo{}).Select("id").Where("album_id IN ?", albumIDs)
	if err := tx.Where("photo_id IN (?)", photoIDs).Delete(&PhotoLike{}).Error; err != nil {
		return err
	}
	if err := tx.Where("album_id IN ?", albumIDs).Delete(&Photo{}).Error; err != nil {
		return err
	}
	if err := tx.Where("album_id IN ?", albumIDs).Delete(&RoleAlbumAccess{}).Error; err != nil {
		return err
	}
	return tx.Where("album_id IN ?", albumIDs).Delete(&AlbumPermission{}).Error
}

// deleteObjects removes stored objects concurrently and waits for all of them.
// Returns how many could not be deleted.
func deleteObjects(ctx context.Context, photos []Photo) int {
	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	g.SetLimit(max(config.DELETE_CONCURRENCY, 1))
	for _, photo := range photos {
		photo := photo
		g.Go(func() error {
			if err := storage.For(photo.StorageProvider).Delete(ctx, photo.StorageKey); err != nil {
				logDeleteFailure(photo, err)
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// DeleteEmptyAlbums removes every album with no photos anywhere below it (hidden
// ones count as photos). Leaves go first so parents become leaves in turn.
func DeleteEmptyAlbums() (deleted int, err error) {
	for depth := 0; depth < maxAlbumDepth; depth++ {
		var ids []uint64
		err = db.Instance.Model(&Album{}).
			Where("NOT EXISTS (SELECT 1 FROM photos WHERE photos.album_id = albums.id)").
			Where("NOT EXISTS (SELECT 1 FROM albums AS children WHERE children.parent_id = albums.id)").
			Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return
		}
		err = db.Instance.Transaction(func(tx *gorm.DB) error {
			if err := deleteAlbumRows(tx, ids); err != nil {
				return err
			}
			return tx.Where("id IN ?", ids).Delete(&Album{}).Error
		})
		if err != nil {
			return
		}
		deleted += len(ids)
	}
	return
}
