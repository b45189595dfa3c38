package stores

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vezor/vezor-go/server/model"
)

// MemoryStore keeps everything in process memory. It backs the default
// dev server configuration and most tests. All values are copied on the
// way in and out so callers can never mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string // lower(email) -> user ID
	orgs    map[string]*model.Organization
	secrets map[string]map[string]*model.Secret // org ID -> secret ID -> secret
	groups  map[string]map[string]*model.Group  // org ID -> group name -> group
	audit   map[string][]model.AuditEntry       // org ID -> entries in append order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		orgs:    make(map[string]*model.Organization),
		secrets: make(map[string]map[string]*model.Secret),
		groups:  make(map[string]map[string]*model.Group),
		audit:   make(map[string][]model.AuditEntry),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return ErrUserExists
	}
	if _, exists := s.users[user.ID]; exists {
		return ErrUserExists
	}
	u := user
	s.users[u.ID] = &u
	s.byEmail[key] = u.ID
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	ret := *u
	return &ret, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	ret := *u
	return &ret, nil
}

func (s *MemoryStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return ErrOrganizationExists
	}
	s.orgs[org.ID] = copyOrganization(org)
	return nil
}

func (s *MemoryStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	return copyOrganization(org), nil
}

func (s *MemoryStore) ListOrganizations(ctx context.Context, userID string) ([]*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*model.Organization, 0)
	for _, org := range s.orgs {
		if _, ok := org.Members[userID]; ok {
			list = append(list, copyOrganization(org))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *MemoryStore) CreateSecret(ctx context.Context, secret *model.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.secrets[secret.OrgID]
	if byID == nil {
		byID = make(map[string]*model.Secret)
		s.secrets[secret.OrgID] = byID
	}
	if _, exists := byID[secret.ID]; exists {
		return ErrSecretExists
	}
	for _, existing := range byID {
		if existing.KeyName == secret.KeyName {
			return ErrSecretExists
		}
	}
	byID[secret.ID] = copySecret(secret)
	return nil
}

func (s *MemoryStore) GetSecret(ctx context.Context, orgID, id string) (*model.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.secrets[orgID][id]
	if !ok {
		return nil, ErrSecretNotFound
	}
	return copySecret(sec), nil
}

func (s *MemoryStore) GetSecretByName(ctx context.Context, orgID, keyName string) (*model.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sec := range s.secrets[orgID] {
		if sec.KeyName == keyName {
			return copySecret(sec), nil
		}
	}
	return nil, ErrSecretNotFound
}

func (s *MemoryStore) UpdateSecret(ctx context.Context, orgID, id string, updateFn func(model.Secret) (model.Secret, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.secrets[orgID][id]
	if !ok {
		return ErrSecretNotFound
	}
	updated, err := updateFn(*copySecret(sec))
	if err != nil {
		return err
	}
	updated.ID = id
	updated.OrgID = orgID
	s.secrets[orgID][id] = copySecret(&updated)
	return nil
}

func (s *MemoryStore) DeleteSecret(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[orgID][id]; !ok {
		return ErrSecretNotFound
	}
	delete(s.secrets[orgID], id)
	return nil
}

func (s *MemoryStore) ListSecrets(ctx context.Context, orgID string) ([]*model.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*model.Secret, 0, len(s.secrets[orgID]))
	for _, sec := range s.secrets[orgID] {
		list = append(list, copySecret(sec))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].KeyName < list[j].KeyName })
	return list, nil
}

func (s *MemoryStore) CreateGroup(ctx context.Context, group *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.groups[group.OrgID]
	if byName == nil {
		byName = make(map[string]*model.Group)
		s.groups[group.OrgID] = byName
	}
	if _, exists := byName[group.Name]; exists {
		return ErrGroupExists
	}
	byName[group.Name] = copyGroup(group)
	return nil
}

func (s *MemoryStore) GetGroup(ctx context.Context, orgID, name string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[orgID][name]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return copyGroup(g), nil
}

func (s *MemoryStore) ListGroups(ctx context.Context, orgID string) ([]*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*model.Group, 0, len(s.groups[orgID]))
	for _, g := range s.groups[orgID] {
		list = append(list, copyGroup(g))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *MemoryStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit[entry.OrgID] = append(s.audit[entry.OrgID], entry)
	return nil
}

func (s *MemoryStore) ListAudit(ctx context.Context, orgID string) ([]model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.AuditEntry(nil), s.audit[orgID]...), nil
}

func copyOrganization(org *model.Organization) *model.Organization {
	ret := *org
	ret.Members = make(map[string]string, len(org.Members))
	for k, v := range org.Members {
		ret.Members[k] = v
	}
	return &ret
}

func copySecret(sec *model.Secret) *model.Secret {
	ret := *sec
	ret.Versions = append([]model.SecretVersion(nil), sec.Versions...)
	if sec.Tags != nil {
		ret.Tags = make(map[string]string, len(sec.Tags))
		for k, v := range sec.Tags {
			ret.Tags[k] = v
		}
	}
	return &ret
}

func copyGroup(g *model.Group) *model.Group {
	ret := *g
	if g.Tags != nil {
		ret.Tags = make(map[string]string, len(g.Tags))
		for k, v := range g.Tags {
			ret.Tags[k] = v
		}
	}
	return &ret
}

var _ Store = (*MemoryStore)(nil)
