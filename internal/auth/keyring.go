package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "shopterm"

// KeyringStore persists the session in the OS keychain/credential manager.
type KeyringStore struct {
	service string
	key     string
}

// NewKeyringStore returns a store keyed by profile, so several API servers can
// keep separate sessions. An empty profile uses Namespace alone.
func NewKeyringStore(profile string) *KeyringStore {
	return &KeyringStore{service: keyringService, key: StoreKey(profile)}
}

func (k *KeyringStore) Load() (State, error) {
	raw, err := keyring.Get(k.service, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("reading keyring: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, fmt.Errorf("decoding keyring session: %w", err)
	}
	return st, nil
}

func (k *KeyringStore) Save(st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, k.key, string(data)); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Clear() error {
	if err := keyring.Delete(k.service, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting keyring entry: %w", err)
	}
	return nil
}
