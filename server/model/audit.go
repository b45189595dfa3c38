package model

import "time"

// AuditEntry records one mutation against an organization. SecretPath is
// the key name for secret operations and the resource name otherwise.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	OrgID      string    `json:"org_id"`
	Action     string    `json:"action"`
	UserEmail  string    `json:"user_email"`
	SecretPath string    `json:"secret_path"`
}
