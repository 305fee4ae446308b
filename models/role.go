package models

import (
	"errors"
	"strings"

	"gallery/db"
	"gallery/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// ViewerRole is built in: it cannot be deleted and every signed-in user holds it
	ViewerRole       = "viewer"
	ViewerRoleColor  = "#71717a"
	DefaultRoleColor = "#6366f1"
)

type Role struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);not null;index:uniq_role_name,unique" json:"name"`
	Color     string `gorm:"type:varchar(16)" json:"color"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

type RoleAssignment struct {
	ID     uint64 `gorm:"primaryKey"`
	RoleID uint64 `gorm:"not null;index:uniq_role_user,unique,priority:1"`
	Role   Role   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID uint64 `gorm:"not null;index:uniq_role_user,unique,priority:2;index"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// RoleSummary is a role with its members and the albums it opens
type RoleSummary struct {
	Role
	Members  []string `json:"members"`
	AlbumIDs []uint64 `json:"album_ids"`
}

func GetRole(id uint64) (role Role, err error) {
	err = db.Instance.Take(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return role, errs.NotFound("role not found")
	}
	return
}

func EnsureViewerRole() (role Role, err error) {
	err = db.Instance.Where(Role{Name: ViewerRole}).Attrs(Role{Color: ViewerRoleColor}).FirstOrCreate(&role).Error
	if errs.IsDuplicate(err) {
		err = db.Instance.Where("name = ?", ViewerRole).Take(&role).Error
	}
	return
}

func ListRoles() ([]RoleSummary, error) {
	if _, err := EnsureViewerRole(); err != nil {
		return nil, err
	}
	var roles []Role
	if err := db.Instance.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	var members []struct {
		RoleID uint64
		Email  string
	}
	err := db.Instance.Table("role_assignments").
		Select("role_assignments.role_id, users.email").
		Joins("JOIN users ON users.id = role_assignments.user_id").
		Order("users.email ASC").
		Scan(&members).Error
	if err != nil {
		return nil, err
	}
	var access []RoleAlbumAccess
	if err = db.Instance.Order("album_id ASC").Find(&access).Error; err != nil {
		return nil, err
	}
	result := make([]RoleSummary, len(roles))
	index := make(map[uint64]int, len(roles))
	for i, r := range roles {
		result[i] = RoleSummary{Role: r, Members: []string{}, AlbumIDs: []uint64{}}
		index[r.ID] = i
	}
	for _, m := range members {
		if i, ok := index[m.RoleID]; ok {
			result[i].Members = append(result[i].Members, m.Email)
		}
	}
	for _, a := range access {
		if i, ok := index[a.RoleID]; ok {
			result[i].AlbumIDs = append(result[i].AlbumIDs, a.AlbumID)
		}
	}
	return result, nil
}

// CreateRole stores the name lowercased
func CreateRole(name, color string) (role Role, err error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return role, errs.Validation("role name is required")
	}
	if color = strings.TrimSpace(color); color == "" {
		color = DefaultRoleColor
	}
	role = Role{Name: name, Color: color}
	if err = db.Instance.Create(&role).Error; errs.IsDuplicate(err) {
		return role, errs.Conflict(err, "a role with this name already exists")
	}
	return
}

func DeleteRole(id uint64) error {
	role, err := GetRole(id)
	if err != nil {
		return err
	}
	if role.Name == ViewerRole {
		return errs.Validation("the viewer role cannot be deleted")
	}
	return db.Instance.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&RoleAlbumAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&RoleAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Role{}, id).Error
	})
}

// AssignRole adds the user (created if unknown) to the role, assigning twice is a no-op
func AssignRole(roleID uint64, email string) (user User, err error) {
	if _, err = GetRole(roleID); err != nil {
		return
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		if user, err = FindOrCreateUser(tx, email, ""); err != nil {
			return err
		}
		return tx.Omit("Role", "User").Clauses(clause.OnConflict{DoNothing: true}).
			Create(&RoleAssignment{RoleID: roleID, UserID: user.ID}).Error
	})
	return
}

func UnassignRole(roleID uint64, email string) error {
	email = NormalizeEmail(email)
	return db.Instance.
		Where("role_id = ? AND user_id IN (?)", roleID, db.Instance.Model(&User{}).Select("id").Where("email = ?", email)).
		Delete(&RoleAssignment{}).Error
}
