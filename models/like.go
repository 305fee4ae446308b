package models

import (
	"gallery/db"
	"gallery/errs"

	"gorm.io/gorm"
)

type PhotoLike struct {
	ID        uint64 `gorm:"primaryKey"`
	PhotoID   uint64 `gorm:"not null;index:uniq_photo_user,unique,priority:1"`
	Photo     Photo  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID    uint64 `gorm:"not null;index:uniq_photo_user,unique,priority:2;index"`
	User      User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

// ToggleLike likes the photo, or removes the like if the user already gave one
func ToggleLike(photoID uint64, email, name string) (liked bool, count int64, err error) {
	photo, err := GetPhoto(photoID)
	if err != nil {
		return
	}
	if photo.Visibility == PhotoHidden {
		return false, 0, errs.NotFound("photo not found")
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		user, err := FindOrCreateUser(tx, email, name)
		if err != nil {
			return err
		}
		result := tx.Where("photo_id = ? AND user_id = ?", photoID, user.ID).Delete(&PhotoLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			err = tx.Omit("Photo", "User").Create(&PhotoLike{PhotoID: photoID, UserID: user.ID}).Error
			if err != nil && !errs.IsDuplicate(err) {
				return err
			}
			liked = true
		}
		return tx.Model(&PhotoLike{}).Where("photo_id = ?", photoID).Count(&count).Error
	})
	return
}

// photoLikers maps photo ids to the emails of the users that liked them
func photoLikers(tx *gorm.DB, photoIDs []uint64) (map[uint64][]string, error) {
	result := make(map[uint64][]string, len(photoIDs))
	if len(photoIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		PhotoID uint64
		Email   string
	}
	err := tx.Table("photo_likes").
		Select("photo_likes.photo_id, users.email").
		Joins("JOIN users ON users.id = photo_likes.user_id").
		Where("photo_likes.photo_id IN ?", photoIDs).
		Order("photo_likes.created_at ASC").
		Scan(&rows).Error
	for _, r := range rows {
		result[r.PhotoID] = append(result[r.PhotoID], r.Email)
	}
	return result, err
}
