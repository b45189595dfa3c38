package model

import "time"

// User is a dev server account. Passwords are stored as bcrypt hashes,
// never in clear text. DefaultOrgID is the personal organization created
// at signup, used when a request names no organization.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
	DefaultOrgID string    `json:"default_org_id"`
	CreatedAt    time.Time `json:"created_at"`
}
