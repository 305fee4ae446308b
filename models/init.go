package models

import (
	"gallery/db"
)

func Init() {
	for _, model := range []any{
		&Album{},
		&User{},
		&Photo{},
		&Role{},
		&RoleAssignment{},
		&RoleAlbumAccess{},
		&AlbumPermission{},
		&PhotoLike{},
	} {
		if err := db.Instance.AutoMigrate(model); err != nil {
			panic(err)
		}
	}
}
