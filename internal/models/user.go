// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is an author account. Email is the lookup key and is compared
// case-sensitively.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	FirstName      string    `gorm:"size:100;not null" json:"first_name"`
	LastName       string    `gorm:"size:100;not null" json:"last_name"`
	Telephone      string    `gorm:"size:32;not null" json:"telephone,omitempty"`
	Bio            *string   `gorm:"type:text" json:"bio"`
	ProfilePicture *string   `gorm:"type:text" json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Posts          []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// Profile is the public projection of a User.
type Profile struct {
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Telephone      string  `json:"telephone,omitempty"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

// Profile projects the user onto its public fields.
func (u *User) Profile() *Profile {
	return &Profile{
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Telephone:      u.Telephone,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
	}
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID uint
	Email  string
}
