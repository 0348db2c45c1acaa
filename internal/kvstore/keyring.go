package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps each entry as a JSON secret in the OS keychain
// (macOS Keychain, Linux Secret Service, Windows Credential Manager).
// The service name groups entries, the id is the account.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keychain-backed store under service
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// Service returns the keychain service name
func (k *KeyringStore) Service() string {
	return k.service
}

func (k *KeyringStore) Get(id string) (map[string]string, bool, error) {
	secret, err := keyring.Get(k.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("keyring lookup of %s/%s failed: %w", k.service, id, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal([]byte(secret), &values); err != nil {
		return nil, false, fmt.Errorf("corrupt keyring entry %s/%s: %w", k.service, id, err)
	}
	return values, true, nil
}

func (k *KeyringStore) Set(id string, values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode keyring entry: %w", err)
	}

	if err := keyring.Set(k.service, id, string(data)); err != nil {
		return fmt.Errorf("keyring write of %s/%s failed: %w", k.service, id, err)
	}
	return nil
}

func (k *KeyringStore) Delete(id string) error {
	err := keyring.Delete(k.service, id)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("keyring delete of %s/%s failed: %w", k.service, id, err)
}
