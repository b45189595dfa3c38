package model

import "time"

// Group names a tag selection. A secret belongs to the group when its
// tags are a superset of the group's tags.
type Group struct {
	Name        string            `json:"name"`
	OrgID       string            `json:"org_id"`
	Tags        map[string]string `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
