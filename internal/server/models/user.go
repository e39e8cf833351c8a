// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. Password holds the argon2id PHC string,
// never the plaintext. ProfilePicture is an optional data URL.
type User struct {
	ID             string
	Username       string
	Email          string
	Password       string
	ProfilePicture string
	CreatedAt      time.Time
}

// PublicUser is the subset of User that may be shown to other users.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
