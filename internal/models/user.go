package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale         Gender = "Male"
	GenderFemale       Gender = "Female"
	GenderNoPreference Gender = "No preference"
)

// Valid reports whether g is one of the accepted gender preferences.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderNoPreference:
		return true
	}
	return false
}

// User is a registered account. OTP and OTPExpiresAt are set together while
// a verification code is outstanding and cleared together once it is used.
type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName        string     `gorm:"not null" json:"firstName"`
	LastName         string     `gorm:"not null" json:"lastName"`
	Email            string     `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	DateOfBirth      time.Time  `gorm:"not null" json:"dateOfBirth"`
	GenderPreference Gender     `gorm:"size:20;not null" json:"genderPreference"`
	IsVerified       bool       `gorm:"not null;default:false" json:"isVerified"`
	OTP              *int       `json:"-"`
	OTPExpiresAt     *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID to new records.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasPendingOTP reports whether a verification code has been issued and not yet consumed.
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTPExpiresAt != nil
}

// ClearOTP removes the outstanding verification code.
func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPExpiresAt = nil
}
