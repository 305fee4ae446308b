package models

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gallery/db"
	"gallery/errs"
	"gallery/logging"
	"gallery/storage"

	"gorm.io/gorm"
)

type PhotoVisibility string

const (
	PhotoVisible PhotoVisibility = "visible"
	PhotoHidden  PhotoVisibility = "hidden" // soft-deleted by deduplication
)

type Photo struct {
	ID              uint64           `gorm:"primaryKey" json:"id"`
	AlbumID         uint64           `gorm:"not null;index" json:"album_id"`
	Album           Album            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Filename        string           `gorm:"type:varchar(500);not null" json:"filename"`
	StorageKey      string           `gorm:"type:varchar(700);not null;index:uniq_photo_storage_key,unique,priority:2" json:"storage_key"`
	StorageProvider storage.Provider `gorm:"type:varchar(16);not null;default:r2;index:uniq_photo_storage_key,unique,priority:1" json:"storage_provider"`
	FileSize        int64            `gorm:"not null;default:0" json:"file_size"`
	Width           *int             `json:"width"`
	Height          *int             `json:"height"`
	Visibility      PhotoVisibility  `gorm:"type:varchar(16);not null;default:visible;index" json:"visibility"`
	Caption         *string          `gorm:"type:varchar(2000)" json:"caption"`
	SortOrder       *int             `json:"sort_order"`
	UploadedAt      int64            `gorm:"autoCreateTime:milli;index" json:"uploaded_at"`
}

func GetPhoto(id uint64) (photo Photo, err error) {
	err = db.Instance.Take(&photo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return photo, errs.NotFound("photo not found")
	}
	return
}

// CreatePhoto registers an object that is already stored
func CreatePhoto(photo *Photo) error {
	photo.Filename = strings.TrimSpace(photo.Filename)
	if photo.Filename == "" {
		return errs.Validation("filename is required")
	}
	if photo.StorageKey == "" {
		return errs.Validation("storage key is required")
	}
	if photo.AlbumID == 0 {
		return errs.Validation("album id is required")
	}
	if photo.StorageProvider == "" {
		photo.StorageProvider = storage.ProviderR2
	}
	if photo.Visibility == "" {
		photo.Visibility = PhotoVisible
	}
	if _, err := GetAlbum(photo.AlbumID); err != nil {
		return err
	}
	err := db.Instance.Omit("Album").Create(photo).Error
	if errs.IsDuplicate(err) {
		return errs.Conflict(err, "a photo with this storage key already exists")
	}
	return err
}

// MovePhotos reassigns photos to another album. Storage keys keep pointing to
// where the bytes were uploaded.
func MovePhotos(ids []uint64, albumID uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, errs.Validation("no photos given")
	}
	if _, err := GetAlbum(albumID); err != nil {
		return 0, err
	}
	result := db.Instance.Model(&Photo{}).Where("id IN ?", ids).Update("album_id", albumID)
	return result.RowsAffected, result.Error
}

// SetCaption stores a caption, blank clears it
func SetCaption(id uint64, caption string) (photo Photo, err error) {
	if photo, err = GetPhoto(id); err != nil {
		return
	}
	caption = strings.TrimSpace(caption)
	if caption == "" {
		photo.Caption = nil
	} else {
		photo.Caption = &caption
	}
	err = db.Instance.Model(&photo).Update("caption", photo.Caption).Error
	return
}

// ReorderPhotos sets sort_order to each photo's position in ids. Photos of
// other albums are ignored.
func ReorderPhotos(albumID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return errs.Validation("no photos given")
	}
	if _, err := GetAlbum(albumID); err != nil {
		return err
	}
	return db.Instance.Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			err := tx.Model(&Photo{}).Where("id = ? AND album_id = ?", id, albumID).Update("sort_order", i).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePhoto removes the object first. A storage failure is logged and the
// row is removed regardless.
func DeletePhoto(ctx context.Context, id uint64) error {
	photo, err := GetPhoto(id)
	if err != nil {
		return err
	}
	deleteObjects(ctx, []Photo{photo})
	return db.Instance.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", photo.ID).Delete(&PhotoLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Photo{}, photo.ID).Error
	})
}

// SortPhotos orders photos the way they are displayed: manual sort order
// first, photos without one after them, newest uploads first within each part
func SortPhotos(photos []Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		a, b := photos[i], photos[j]
		if (a.SortOrder != nil) != (b.SortOrder != nil) {
			return a.SortOrder != nil
		}
		if a.SortOrder != nil && *a.SortOrder != *b.SortOrder {
			return *a.SortOrder < *b.SortOrder
		}
		if a.UploadedAt != b.UploadedAt {
			return a.UploadedAt > b.UploadedAt
		}
		return a.ID > b.ID
	})
}

// PhotoKeyTaken reports whether a row already points to key on provider
func PhotoKeyTaken(provider storage.Provider, key string) (bool, error) {
	var count int64
	err := db.Instance.Model(&Photo{}).
		Where("storage_provider = ? AND storage_key = ?", provider, key).
		Count(&count).Error
	return count > 0, err
}

// PhotoLocation is what the delivery path needs to know about a key
type PhotoLocation struct {
	Found    bool             `json:"found"`
	AlbumID  uint64           `json:"album_id"`
	Provider storage.Provider `json:"provider"`
	Hidden   bool             `json:"hidden"`
}

// LocatePhoto finds which backend holds key. Unknown keys (not synced yet)
// are assumed to be in the private bucket.
func LocatePhoto(key string) (PhotoLocation, error) {
	var photo Photo
	err := db.Instance.Select("id", "album_id", "storage_provider", "visibility").
		Where("storage_key = ?", key).Order("id ASC").Take(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PhotoLocation{Provider: storage.ProviderR2}, nil
	}
	if err != nil {
		return PhotoLocation{}, err
	}
	return PhotoLocation{
		Found:    true,
		AlbumID:  photo.AlbumID,
		Provider: photo.StorageProvider,
		Hidden:   photo.Visibility == PhotoHidden,
	}, nil
}

// AlbumPhotosRecursive lists visible photos of an album and all its descendants
func AlbumPhotosRecursive(albumID uint64) (photos []Photo, err error) {
	if _, err = GetAlbum(albumID); err != nil {
		return
	}
	levels, err := descendantLevels(db.Instance, albumID)
	if err != nil {
		return
	}
	err = db.Instance.Where("album_id IN ? AND visibility <> ?", flatten(levels), PhotoHidden).
		Order("uploaded_at DESC, id DESC").Find(&photos).Error
	return
}

func logDeleteFailure(photo Photo, err error) {
	logging.Warn("Storage delete failed, object left orphaned",
		logging.String("provider", string(photo.StorageProvider)),
		logging.String("key", photo.StorageKey),
		logging.Err(err))
}
