// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. Email is the login and the token subject.
type User struct {
	ID           int64
	UserName     string
	Email        string
	Password     string
	CreatedAt    time.Time
	Avatar       *string
	RefreshToken *string
	Confirmed    bool
}
