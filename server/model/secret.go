package model

import "time"

// Secret is the stored form of a secret. Versions is append-only and
// ordered: version n lives at index n-1, the current value is the last
// entry. Stores never hold a secret with zero versions.
type Secret struct {
	ID          string            `json:"id"`
	OrgID       string            `json:"org_id"`
	KeyName     string            `json:"key_name"`
	Versions    []SecretVersion   `json:"versions"`
	Tags        map[string]string `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	ValueType   string            `json:"value_type"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SecretVersion is one historical value of a secret.
type SecretVersion struct {
	Version   int       `json:"version"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

// Current returns the newest version.
func (s *Secret) Current() SecretVersion {
	if len(s.Versions) == 0 {
		return SecretVersion{}
	}
	return s.Versions[len(s.Versions)-1]
}

// MatchesTags reports whether the secret carries every tag in want with
// the same value. An empty want matches everything.
func (s *Secret) MatchesTags(want map[string]string) bool {
	for k, v := range want {
		if s.Tags[k] != v {
			return false
		}
	}
	return true
}
