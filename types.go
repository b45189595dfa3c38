package vezor

import "time"

// ValueType categorizes a secret value for display and validation.
type ValueType string

const (
	ValueTypeString           ValueType = "string"
	ValueTypePassword         ValueType = "password"
	ValueTypeURL              ValueType = "url"
	ValueTypeConnectionString ValueType = "connection_string"
)

// Secret is a single named value within an organization. Version counts
// up from 1; every value change creates a new version and the previous
// values stay retrievable through the version history.
type Secret struct {
	ID          string            `json:"id"`
	KeyName     string            `json:"key_name"`
	Value       string            `json:"value,omitempty"`
	Version     int               `json:"version"`
	Tags        map[string]string `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	ValueType   ValueType         `json:"value_type,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SecretVersion is one entry in a secret's version history.
type SecretVersion struct {
	Version   int       `json:"version"`
	Value     string    `json:"value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// SecretList is one page of secrets plus paging metadata. Total counts
// everything matching the filter, not just this page.
type SecretList struct {
	Secrets []Secret `json:"secrets"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit,omitempty"`
	Offset  int      `json:"offset"`
}

// VersionList is the full version history of a secret, newest first.
type VersionList struct {
	Versions       []SecretVersion `json:"versions"`
	CurrentVersion int             `json:"current_version"`
}

// Group is a server-defined bundle of secrets selected by tags. Groups
// are managed through the Vezor console; the API only resolves them.
type Group struct {
	Name        string            `json:"name"`
	Tags        map[string]string `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// GroupSecrets is the resolved contents of a group at pull time.
type GroupSecrets struct {
	Group   string            `json:"group"`
	Tags    map[string]string `json:"tags,omitempty"`
	Secrets map[string]string `json:"secrets"`
	Count   int               `json:"count"`
}

// Organization is a tenant. All secret operations are scoped to the
// organization named by the X-Organization-Id header.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditEntry records one mutation performed through the API.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	UserEmail  string    `json:"user_email,omitempty"`
	SecretPath string    `json:"secret_path,omitempty"`
}

// AuditLog is one page of audit entries, newest first.
type AuditLog struct {
	Entries []AuditEntry `json:"logs"`
	Total   int          `json:"total"`
}

// Health reports service liveness.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ImportResult summarizes a bulk dotenv import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// ValidationIssue names a schema key that failed validation.
type ValidationIssue struct {
	Key    string `json:"key"`
	Reason string `json:"reason,omitempty"`
}

// ValidationResult is the outcome of validating a schema against the
// secrets stored for an environment.
type ValidationResult struct {
	Valid        bool              `json:"valid"`
	Missing      []ValidationIssue `json:"missing,omitempty"`
	ValidSecrets []string          `json:"valid_secrets,omitempty"`
}
