// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered marketplace account.
//
// Username is unique and never changes after registration. Email and
// PhoneNumber are the only contact fields a profile update may touch.
// PassHash holds the encoded digest produced by auth.Hasher and is never
// serialized to clients.
type User struct {
	ID          int64     `json:"id"          db:"user_id"`
	Username    string    `json:"username"    db:"username"     validate:"required,min=3,max=32,username"`
	Email       string    `json:"email"       db:"email"        validate:"omitempty,email,max=254"`
	PhoneNumber string    `json:"phoneNumber" db:"phone_number" validate:"omitempty,max=32"`
	PassHash    string    `json:"-"           db:"pass_hash"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}
