// models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. The capability table in utils/permissions.go decides what each
// role may do; handlers never compare role strings directly.
const (
	RoleAdmin       = "admin"
	RoleReviewer    = "reviewer"
	RoleInspector   = "inspector"
	RoleActionOwner = "action_owner"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"size:255;default:''" json:"full_name"`
	Role         string    `gorm:"size:50;not null;default:'inspector'" json:"role"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
