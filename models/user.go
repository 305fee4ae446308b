package models

import (
	"strings"

	"gallery/errs"

	"gorm.io/gorm"
)

// User is any signed-in person known to the gallery. Rows are created on
// demand (role assignment, likes), identity itself lives with the proxy.
type User struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"type:varchar(320);not null;index:uniq_email,unique" json:"email"`
	Name      string `gorm:"type:varchar(200)" json:"name"`
	Username  string `gorm:"type:varchar(200)" json:"username"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindOrCreateUser looks the user up by email, creating it with the given name
// (or the local part of the email) when missing
func FindOrCreateUser(tx *gorm.DB, email, name string) (user User, err error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return user, errs.Validation("a valid email is required")
	}
	if name = strings.TrimSpace(name); name == "" {
		name = email[:strings.Index(email, "@")]
	}
	err = tx.Where(User{Email: email}).Attrs(User{Name: name}).FirstOrCreate(&user).Error
	if errs.IsDuplicate(err) {
		// Lost a race with a concurrent create
		err = tx.Where("email = ?", email).Take(&user).Error
	}
	return
}
