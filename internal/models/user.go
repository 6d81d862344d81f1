package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Image        string     `json:"image,omitempty"`
	IsOnline     bool       `gorm:"not null;default:false" json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// PublicProfile is the part of a user that other participants may see.
type PublicProfile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Image string    `json:"image,omitempty"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Image: u.Image,
	}
}
