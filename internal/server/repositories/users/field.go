package users

import "github.com/dmitrijs2005/artfeed/internal/server/models"

// Field selects a column of the users table.
type Field string

const (
	FieldID             Field = "id"
	FieldUsername       Field = "username"
	FieldEmail          Field = "email"
	FieldPassword       Field = "password"
	FieldProfilePicture Field = "profile_picture"
	FieldCreatedAt      Field = "created_at"
)

var allFields = []Field{FieldID, FieldUsername, FieldEmail, FieldPassword, FieldProfilePicture, FieldCreatedAt}

// target returns the scan destination inside u for the field, or nil for
// an unknown field.
func (f Field) target(u *models.User) any {
	switch f {
	case FieldID:
		return &u.ID
	case FieldUsername:
		return &u.Username
	case FieldEmail:
		return &u.Email
	case FieldPassword:
		return &u.Password
	case FieldProfilePicture:
		return &u.ProfilePicture
	case FieldCreatedAt:
		return &u.CreatedAt
	}
	return nil
}
