package model

import "time"

// User is a phone-number identity allowed to sign in.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"uid"`
	PhoneNumber string    `gorm:"uniqueIndex;size:32;not null" json:"phoneNumber"`
	DisplayName string    `gorm:"size:128" json:"displayName"`
	Admin       bool      `gorm:"not null;default:false" json:"admin"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
