package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vezor/vezor-go/server/model"
)

func openTestBolt(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vezor.db")
	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestBoltStore_SecretsCRUD(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestBolt(t)
	now := time.Now().UTC()

	secret := &model.Secret{
		ID:      "s1",
		OrgID:   "org-1",
		KeyName: "DATABASE_URL",
		Versions: []model.SecretVersion{
			{Version: 1, Value: "postgres://localhost", CreatedAt: now, CreatedBy: "dev@vezor.io"},
		},
		Tags:      map[string]string{"env": "prod"},
		ValueType: "connection_string",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := store.CreateSecret(ctx, secret); err != nil {
		t.Fatalf("CreateSecret: %v", err)
	}
	if err := store.CreateSecret(ctx, &model.Secret{ID: "s2", OrgID: "org-1", KeyName: "DATABASE_URL"}); !errors.Is(err, ErrSecretExists) {
		t.Errorf("duplicate key name: got %v, want ErrSecretExists", err)
	}
	if err := store.CreateSecret(ctx, &model.Secret{
		ID: "s2", OrgID: "org-2", KeyName: "DATABASE_URL",
		Versions: []model.SecretVersion{{Version: 1, Value: "other"}},
	}); err != nil {
		t.Fatalf("CreateSecret in other org: %v", err)
	}

	got, err := store.GetSecret(ctx, "org-1", "s1")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if got.Current().Value != "postgres://localhost" {
		t.Errorf("unexpected value %q", got.Current().Value)
	}
	if _, err := store.GetSecret(ctx, "org-2", "s1"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("cross-org get: got %v, want ErrSecretNotFound", err)
	}

	got, err = store.GetSecretByName(ctx, "org-1", "DATABASE_URL")
	if err != nil {
		t.Fatalf("GetSecretByName: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("GetSecretByName ID = %q", got.ID)
	}

	err = store.UpdateSecret(ctx, "org-1", "s1", func(s model.Secret) (model.Secret, error) {
		s.Versions = append(s.Versions, model.SecretVersion{Version: 2, Value: "postgres://db.internal"})
		return s, nil
	})
	if err != nil {
		t.Fatalf("UpdateSecret: %v", err)
	}
	got, err = store.GetSecret(ctx, "org-1", "s1")
	if err != nil {
		t.Fatalf("GetSecret after update: %v", err)
	}
	if len(got.Versions) != 2 || got.Current().Value != "postgres://db.internal" {
		t.Errorf("unexpected versions after update: %+v", got.Versions)
	}

	list, err := store.ListSecrets(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListSecrets: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListSecrets len = %d, want 1", len(list))
	}

	if err := store.DeleteSecret(ctx, "org-1", "s1"); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}
	if err := store.DeleteSecret(ctx, "org-1", "s1"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("delete missing: got %v, want ErrSecretNotFound", err)
	}
}

func TestBoltStore_UsersAndOrgs(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestBolt(t)

	user := model.User{ID: "u1", Email: "dev@vezor.io", PasswordHash: []byte("hash")}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := store.CreateUser(ctx, model.User{ID: "u2", Email: "DEV@vezor.io"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate email: got %v, want ErrUserExists", err)
	}
	got, err := store.GetUserByEmail(ctx, "dev@vezor.io")
	if err != nil || got.ID != "u1" {
		t.Fatalf("GetUserByEmail: %v %+v", err, got)
	}

	org := &model.Organization{ID: "org-1", Name: "acme", OwnerID: "u1", Members: map[string]string{"u1": model.RoleAdmin}}
	if err := store.CreateOrganization(ctx, org); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if err := store.CreateOrganization(ctx, org); !errors.Is(err, ErrOrganizationExists) {
		t.Errorf("duplicate org: got %v, want ErrOrganizationExists", err)
	}
	orgs, err := store.ListOrganizations(ctx, "u1")
	if err != nil || len(orgs) != 1 {
		t.Fatalf("ListOrganizations: %v %d", err, len(orgs))
	}
	orgs, err = store.ListOrganizations(ctx, "stranger")
	if err != nil || len(orgs) != 0 {
		t.Fatalf("ListOrganizations for non-member: %v %d", err, len(orgs))
	}
}

func TestBoltStore_AuditOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestBolt(t)

	for i, action := range []string{"create_secret", "update_secret", "delete_secret"} {
		entry := model.AuditEntry{
			Timestamp:  time.Now().UTC(),
			OrgID:      "org-1",
			Action:     action,
			UserEmail:  "dev@vezor.io",
			SecretPath: "KEY",
		}
		if err := store.AppendAudit(ctx, entry); err != nil {
			t.Fatalf("AppendAudit %d: %v", i, err)
		}
	}
	if err := store.AppendAudit(ctx, model.AuditEntry{OrgID: "org-2", Action: "create_secret"}); err != nil {
		t.Fatalf("AppendAudit other org: %v", err)
	}

	entries, err := store.ListAudit(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ListAudit len = %d, want 3", len(entries))
	}
	if entries[0].Action != "create_secret" || entries[2].Action != "delete_secret" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTestBolt(t)

	secret := &model.Secret{
		ID: "s1", OrgID: "org-1", KeyName: "API_KEY",
		Versions: []model.SecretVersion{{Version: 1, Value: "abc123"}},
	}
	if err := store.CreateSecret(ctx, secret); err != nil {
		t.Fatalf("CreateSecret: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetSecret(ctx, "org-1", "s1")
	if err != nil {
		t.Fatalf("GetSecret after reopen: %v", err)
	}
	if got.Current().Value != "abc123" {
		t.Errorf("value after reopen = %q", got.Current().Value)
	}
}
