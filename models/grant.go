package models

import (
	"gallery/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleAlbumAccess opens one album (not its sub-albums) to a role
type RoleAlbumAccess struct {
	ID      uint64 `gorm:"primaryKey"`
	RoleID  uint64 `gorm:"not null;index:uniq_role_album,unique,priority:1"`
	Role    Role   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AlbumID uint64 `gorm:"not null;index:uniq_role_album,unique,priority:2;index"`
	Album   Album  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// AlbumPermission opens one album to a single user
type AlbumPermission struct {
	ID      uint64 `gorm:"primaryKey"`
	AlbumID uint64 `gorm:"not null;index:uniq_album_user,unique,priority:1"`
	Album   Album  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID  uint64 `gorm:"not null;index:uniq_album_user,unique,priority:2;index"`
	User    User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// AlbumGrants lists who may open an album besides the owner
type AlbumGrants struct {
	Roles []RoleGrant `json:"roles"`
	Users []string    `json:"users"`
}

type RoleGrant struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

// Allows reports whether a signed-in non-owner is named by a grant
func (g AlbumGrants) Allows(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, u := range g.Users {
		if u == email {
			return true
		}
	}
	for _, r := range g.Roles {
		if r.Role == ViewerRole {
			return true
		}
		for _, m := range r.Members {
			if m == email {
				return true
			}
		}
	}
	return false
}

// CanView is the access rule for a single album, evaluated without looking at
// its ancestors or descendants
func CanView(album Album, grants AlbumGrants, email string, isOwner bool) bool {
	if isOwner {
		return true
	}
	if album.Visibility == AlbumArchived {
		return false
	}
	return album.Visibility == AlbumPublic || grants.Allows(email)
}

func loadAlbumGrants(tx *gorm.DB, albumID uint64) (grants AlbumGrants, err error) {
	var rows []struct {
		RoleName string
		Email    *string
	}
	err = tx.Table("role_album_accesses").
		Select("roles.name AS role_name, users.email AS email").
		Joins("JOIN roles ON roles.id = role_album_accesses.role_id").
		Joins("LEFT JOIN role_assignments ON role_assignments.role_id = roles.id").
		Joins("LEFT JOIN users ON users.id = role_assignments.user_id").
		Where("role_album_accesses.album_id = ?", albumID).
		Order("roles.name ASC, users.email ASC").
		Scan(&rows).Error
	if err != nil {
		return
	}
	grants.Roles = []RoleGrant{}
	for _, row := range rows {
		n := len(grants.Roles)
		if n == 0 || grants.Roles[n-1].Role != row.RoleName {
			grants.Roles = append(grants.Roles, RoleGrant{Role: row.RoleName, Members: []string{}})
			n++
		}
		if row.Email != nil {
			grants.Roles[n-1].Members = append(grants.Roles[n-1].Members, *row.Email)
		}
	}
	grants.Users = []string{}
	err = tx.Table("album_permissions").
		Joins("JOIN users ON users.id = album_permissions.user_id").
		Where("album_permissions.album_id = ?", albumID).
		Order("users.email ASC").
		Pluck("users.email", &grants.Users).Error
	return
}

// CanViewAlbum runs the access rule for an album id
func CanViewAlbum(albumID uint64, email string, isOwner bool) (bool, error) {
	if isOwner {
		return true, nil
	}
	album, err := GetAlbum(albumID)
	if err != nil {
		return false, err
	}
	if album.Visibility == AlbumArchived {
		return false, nil
	}
	if album.Visibility == AlbumPublic {
		return true, nil
	}
	grants, err := loadAlbumGrants(db.Instance, albumID)
	if err != nil {
		return false, err
	}
	return grants.Allows(email), nil
}

// GrantedAlbumIDs lists the albums opened to the user by any grant,
// including those given to the viewer role
func GrantedAlbumIDs(email string) ([]uint64, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var viaRoles []uint64
	err := db.Instance.Table("role_album_accesses").
		Joins("JOIN roles ON roles.id = role_album_accesses.role_id").
		Where("roles.name = ? OR roles.id IN (?)", ViewerRole,
			db.Instance.Table("role_assignments").Select("role_assignments.role_id").
				Joins("JOIN users ON users.id = role_assignments.user_id").
				Where("users.email = ?", email)).
		Pluck("role_album_accesses.album_id", &viaRoles).Error
	if err != nil {
		return nil, err
	}
	var direct []uint64
	err = db.Instance.Table("album_permissions").
		Joins("JOIN users ON users.id = album_permissions.user_id").
		Where("users.email = ?", email).
		Pluck("album_permissions.album_id", &direct).Error
	return append(viaRoles, direct...), err
}

// GrantAlbum opens an album to a role, granting twice is a no-op
func GrantAlbum(roleID, albumID uint64) error {
	if _, err := GetRole(roleID); err != nil {
		return err
	}
	if _, err := GetAlbum(albumID); err != nil {
		return err
	}
	return db.Instance.Omit("Role", "Album").Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RoleAlbumAccess{RoleID: roleID, AlbumID: albumID}).Error
}

func RevokeAlbum(roleID, albumID uint64) error {
	return db.Instance.Where("role_id = ? AND album_id = ?", roleID, albumID).Delete(&RoleAlbumAccess{}).Error
}

// GrantUser opens an album to a single user (created if unknown)
func GrantUser(albumID uint64, email string) (user User, err error) {
	if _, err = GetAlbum(albumID); err != nil {
		return
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		if user, err = FindOrCreateUser(tx, email, ""); err != nil {
			return err
		}
		return tx.Omit("Album", "User").Clauses(clause.OnConflict{DoNothing: true}).
			Create(&AlbumPermission{AlbumID: albumID, UserID: user.ID}).Error
	})
	return
}

func RevokeUser(albumID uint64, email string) error {
	email = NormalizeEmail(email)
	return db.Instance.
		Where("album_id = ? AND user_id IN (?)", albumID, db.Instance.Model(&User{}).Select("id").Where("email = ?", email)).
		Delete(&AlbumPermission{}).Error
}
