package model

import "time"

// Membership roles within an organization.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Organization scopes secrets, groups and audit entries. Members maps
// user IDs to roles; the creating user is always an admin. Every user
// gets a personal organization at signup.
type Organization struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	OwnerID     string            `json:"owner_id"`
	Members     map[string]string `json:"members"`
	CreatedAt   time.Time         `json:"created_at"`
}

// RoleOf returns the role of userID in the organization, if any.
func (o *Organization) RoleOf(userID string) (string, bool) {
	role, ok := o.Members[userID]
	return role, ok
}
