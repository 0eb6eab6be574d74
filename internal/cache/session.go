package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fragmede/shopterm/internal/auth"
)

// SessionStore persists the auth session in the session table, one row per
// API server.
type SessionStore struct {
	db  *DB
	key string
}

// NewSessionStore returns an auth.Store backed by db for profile, the API
// base URL.
func NewSessionStore(db *DB, profile string) *SessionStore {
	return &SessionStore{db: db, key: auth.StoreKey(profile)}
}

func (s *SessionStore) Load() (auth.State, error) {
	var value string
	err := s.db.db.QueryRow(`SELECT value FROM session WHERE key = ?`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.State{}, nil
	}
	if err != nil {
		return auth.State{}, err
	}
	var st auth.State
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		return auth.State{}, fmt.Errorf("decoding stored session: %w", err)
	}
	return st, nil
}

func (s *SessionStore) Save(st auth.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.db.Exec(`INSERT OR REPLACE INTO session (key, value) VALUES (?, ?)`, s.key, string(data))
	return err
}

func (s *SessionStore) Clear() error {
	_, err := s.db.db.Exec(`DELETE FROM session WHERE key = ?`, s.key)
	return err
}
