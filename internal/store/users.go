package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/DavidGarciaCosta/portal-productos/internal/model/user"
)

const (
	userKeyPrefix  = "user:id:"
	emailKeyPrefix = "user:email:"
	nameKeyPrefix  = "user:name:"
)

// Users persists accounts. Lookups by email and username go through index
// keys pointing at the primary record.
type Users struct {
	db *badger.DB
}

// NewUsers builds the account repository.
func NewUsers(db *badger.DB) *Users {
	return &Users{db: db}
}

// Create persists a new account. The id is generated here; email and
// username uniqueness are enforced inside one transaction.
func (s *Users) Create(u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LastSeen = now

	data, err := json.Marshal(u)
	if err != nil {
		return user.User{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(emailKeyPrefix + u.Email)); err == nil {
			return ErrUserExists
		}
		if _, err := txn.Get([]byte(nameKeyPrefix + u.Username)); err == nil {
			return ErrUserExists
		}
		if err := txn.Set([]byte(userKeyPrefix+u.ID), data); err != nil {
			return err
		}
		if err := txn.Set([]byte(emailKeyPrefix+u.Email), []byte(u.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(nameKeyPrefix+u.Username), []byte(u.ID))
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// GetByID fetches an account by primary key.
func (s *Users) GetByID(id string) (user.User, error) {
	var u user.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKeyPrefix+id, &u)
	})
	return u, err
}

// GetByEmail resolves the email index and fetches the account.
func (s *Users) GetByEmail(email string) (user.User, error) {
	var u user.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(emailKeyPrefix + email))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, userKeyPrefix+id, &u)
	})
	return u, err
}

// SetOnline flips the persisted online flag and refreshes last-seen.
func (s *Users) SetOnline(id string, online bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var u user.User
		if err := getJSON(txn, userKeyPrefix+id, &u); err != nil {
			return err
		}
		u.IsOnline = online
		u.LastSeen = time.Now().UTC()
		u.UpdatedAt = u.LastSeen
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return txn.Set([]byte(userKeyPrefix+id), data)
	})
}

// ClearOnline marks every account offline. Used at shutdown so a restart
// does not report ghosts as online.
func (s *Users) ClearOnline() error {
	ids, err := s.onlineIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.SetOnline(id, false); err != nil {
			return err
		}
	}
	return nil
}

// HasAdmin reports whether any persisted account carries the admin role.
func (s *Users) HasAdmin() (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, userKeyPrefix, func(val []byte) error {
			var u user.User
			if err := json.Unmarshal(val, &u); err != nil {
				return err
			}
			if u.IsAdmin() {
				found = true
			}
			return nil
		})
	})
	return found, err
}

func (s *Users) onlineIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, userKeyPrefix, func(val []byte) error {
			var u user.User
			if err := json.Unmarshal(val, &u); err != nil {
				return err
			}
			if u.IsOnline {
				ids = append(ids, u.ID)
			}
			return nil
		})
	})
	return ids, err
}

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func forEachPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(func(val []byte) error {
			return fn(append([]byte(nil), val...))
		}); err != nil {
			return err
		}
	}
	return nil
}
