package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/vezor/vezor-go/server/model"
)

var (
	usersBucket  = []byte("users")
	emailsBucket = []byte("user_emails")
	orgsBucket   = []byte("organizations")
	secretsBkt   = []byte("secrets")
	groupsBucket = []byte("groups")
	auditBucket  = []byte("audit")
)

// BoltStore persists through a single bbolt file. Org-scoped records use
// "orgID:suffix" keys so one organization's data sits in a contiguous key
// range and can be walked with a cursor prefix scan. Org IDs are UUIDs
// and never contain a colon.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, emailsBucket, orgsBucket, secretsBkt, groupsBucket, auditBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func scopedKey(orgID, suffix string) []byte {
	return []byte(orgID + ":" + suffix)
}

func (s *BoltStore) CreateUser(ctx context.Context, user model.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(usersBucket)
		emails := tx.Bucket(emailsBucket)
		emailKey := []byte(strings.ToLower(user.Email))
		if emails.Get(emailKey) != nil || users.Get([]byte(user.ID)) != nil {
			return ErrUserExists
		}
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		if err := users.Put([]byte(user.ID), data); err != nil {
			return err
		}
		return emails.Put(emailKey, []byte(user.ID))
	})
}

func (s *BoltStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(usersBucket).Get([]byte(id))
		if val == nil {
			return ErrUserNotFound
		}
		return json.Unmarshal(val, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(emailsBucket).Get([]byte(strings.ToLower(email)))
		if id == nil {
			return ErrUserNotFound
		}
		val := tx.Bucket(usersBucket).Get(id)
		if val == nil {
			return ErrUserNotFound
		}
		return json.Unmarshal(val, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(orgsBucket)
		if bucket.Get([]byte(org.ID)) != nil {
			return ErrOrganizationExists
		}
		data, err := json.Marshal(org)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(org.ID), data)
	})
}

func (s *BoltStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := s.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(orgsBucket).Get([]byte(id))
		if val == nil {
			return ErrOrganizationNotFound
		}
		return json.Unmarshal(val, &org)
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *BoltStore) ListOrganizations(ctx context.Context, userID string) ([]*model.Organization, error) {
	list := make([]*model.Organization, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(orgsBucket).ForEach(func(k, v []byte) error {
			var org model.Organization
			if err := json.Unmarshal(v, &org); err != nil {
				return err
			}
			if _, ok := org.Members[userID]; ok {
				list = append(list, &org)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *BoltStore) CreateSecret(ctx context.Context, secret *model.Secret) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(secretsBkt)
		if bucket.Get(scopedKey(secret.OrgID, secret.ID)) != nil {
			return ErrSecretExists
		}
		if existing, err := findSecretByName(bucket, secret.OrgID, secret.KeyName); err != nil {
			return err
		} else if existing != nil {
			return ErrSecretExists
		}
		data, err := json.Marshal(secret)
		if err != nil {
			return err
		}
		return bucket.Put(scopedKey(secret.OrgID, secret.ID), data)
	})
}

func (s *BoltStore) GetSecret(ctx context.Context, orgID, id string) (*model.Secret, error) {
	var secret model.Secret
	err := s.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(secretsBkt).Get(scopedKey(orgID, id))
		if val == nil {
			return ErrSecretNotFound
		}
		return json.Unmarshal(val, &secret)
	})
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

func (s *BoltStore) GetSecretByName(ctx context.Context, orgID, keyName string) (*model.Secret, error) {
	var secret *model.Secret
	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := findSecretByName(tx.Bucket(secretsBkt), orgID, keyName)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrSecretNotFound
		}
		secret = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

func findSecretByName(bucket *bbolt.Bucket, orgID, keyName string) (*model.Secret, error) {
	prefix := []byte(orgID + ":")
	c := bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var sec model.Secret
		if err := json.Unmarshal(v, &sec); err != nil {
			return nil, err
		}
		if sec.KeyName == keyName {
			return &sec, nil
		}
	}
	return nil, nil
}

func (s *BoltStore) UpdateSecret(ctx context.Context, orgID, id string, updateFn func(model.Secret) (model.Secret, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(secretsBkt)
		key := scopedKey(orgID, id)
		val := bucket.Get(key)
		if val == nil {
			return ErrSecretNotFound
		}
		var secret model.Secret
		if err := json.Unmarshal(val, &secret); err != nil {
			return err
		}
		updated, err := updateFn(secret)
		if err != nil {
			return err
		}
		updated.ID = id
		updated.OrgID = orgID
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

func (s *BoltStore) DeleteSecret(ctx context.Context, orgID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(secretsBkt)
		key := scopedKey(orgID, id)
		if bucket.Get(key) == nil {
			return ErrSecretNotFound
		}
		return bucket.Delete(key)
	})
}

func (s *BoltStore) ListSecrets(ctx context.Context, orgID string) ([]*model.Secret, error) {
	list := make([]*model.Secret, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(orgID + ":")
		c := tx.Bucket(secretsBkt).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var sec model.Secret
			if err := json.Unmarshal(v, &sec); err != nil {
				return err
			}
			list = append(list, &sec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].KeyName < list[j].KeyName })
	return list, nil
}

func (s *BoltStore) CreateGroup(ctx context.Context, group *model.Group) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(groupsBucket)
		key := scopedKey(group.OrgID, group.Name)
		if bucket.Get(key) != nil {
			return ErrGroupExists
		}
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

func (s *BoltStore) GetGroup(ctx context.Context, orgID, name string) (*model.Group, error) {
	var group model.Group
	err := s.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(groupsBucket).Get(scopedKey(orgID, name))
		if val == nil {
			return ErrGroupNotFound
		}
		return json.Unmarshal(val, &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *BoltStore) ListGroups(ctx context.Context, orgID string) ([]*model.Group, error) {
	list := make([]*model.Group, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(orgID + ":")
		c := tx.Bucket(groupsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var g model.Group
			if err := json.Unmarshal(v, &g); err != nil {
				return err
			}
			list = append(list, &g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *BoltStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(auditBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		// Big-endian sequence keeps entries in append order under the prefix.
		key := make([]byte, 0, len(entry.OrgID)+1+8)
		key = append(key, entry.OrgID...)
		key = append(key, ':')
		key = binary.BigEndian.AppendUint64(key, seq)
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

func (s *BoltStore) ListAudit(ctx context.Context, orgID string) ([]model.AuditEntry, error) {
	list := make([]model.AuditEntry, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(orgID + ":")
		c := tx.Bucket(auditBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var entry model.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			list = append(list, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

var _ Store = (*BoltStore)(nil)
