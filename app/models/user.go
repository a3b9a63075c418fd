package models

import "gorm.io/gorm"

// User can sign in to the API and, with the admin or staff role, to the
// admin site.
type User struct {
	gorm.Model
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`
	Role     string `gorm:"size:50;not null" json:"role"`
}

func (u User) String() string { return u.Email }
