package stores

import (
	"context"
	"errors"

	"github.com/vezor/vezor-go/server/model"
)

var (
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrOrganizationExists   = errors.New("organization already exists")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSecretExists         = errors.New("secret already exists")
	ErrSecretNotFound       = errors.New("secret not found")
	ErrGroupExists          = errors.New("group already exists")
	ErrGroupNotFound        = errors.New("group not found")
)

// Store is the persistence boundary of the dev server. Implementations
// must be safe for concurrent use. Secrets, groups and audit entries are
// scoped to an organization; lookups outside that scope report not found.
type Store interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	ListOrganizations(ctx context.Context, userID string) ([]*model.Organization, error)

	CreateSecret(ctx context.Context, secret *model.Secret) error
	GetSecret(ctx context.Context, orgID, id string) (*model.Secret, error)
	GetSecretByName(ctx context.Context, orgID, keyName string) (*model.Secret, error)
	UpdateSecret(ctx context.Context, orgID, id string, updateFn func(model.Secret) (model.Secret, error)) error
	DeleteSecret(ctx context.Context, orgID, id string) error
	ListSecrets(ctx context.Context, orgID string) ([]*model.Secret, error)

	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, orgID, name string) (*model.Group, error)
	ListGroups(ctx context.Context, orgID string) ([]*model.Group, error)

	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context, orgID string) ([]model.AuditEntry, error)
}
