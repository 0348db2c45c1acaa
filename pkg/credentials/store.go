// Package credentials keeps per-kind credential records on the local machine,
// encrypting every field with a key derived from the machine identity.
package credentials

import (
	"fmt"
	"sort"

	"github.com/systmms/opscreds/internal/logging"
	"github.com/systmms/opscreds/internal/secure"
)

// Record maps field names to plaintext secret values.
type Record map[string]string

// Backend persists encrypted records keyed by kind identifier.
type Backend interface {
	Get(id string) (map[string]string, bool, error)
	Set(id string, values map[string]string) error
	Delete(id string) error
}

// IdentitySource returns a stable identifier of the current machine.
type IdentitySource interface {
	ID() (string, error)
}

// Store encrypts records on write and decrypts them on read.
type Store struct {
	backend Backend
	key     *secure.SecureBuffer
	logger  *logging.Logger
}

// NewStore derives the field key from identity and keeps it in a locked enclave.
func NewStore(backend Backend, identity IdentitySource, logger *logging.Logger) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("credential store requires a backend")
	}
	if logger == nil {
		logger = logging.New(false, true)
	}

	machineID, err := identity.ID()
	if err != nil {
		return nil, fmt.Errorf("failed to read machine identity: %w", err)
	}

	derived := DeriveKey(machineID)
	key, err := secure.NewSecureBuffer(derived)
	for i := range derived {
		derived[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("failed to protect encryption key: %w", err)
	}

	return &Store{backend: backend, key: key, logger: logger}, nil
}

// SetCredentials validates record against the kind schema, then encrypts and
// writes every field. Nothing is written when validation fails.
func (s *Store) SetCredentials(kind Kind, record Record) error {
	if err := kind.Validate(record); err != nil {
		return err
	}

	encrypted := make(map[string]string, len(record))
	err := s.key.WithBytes(func(key []byte) error {
		for field, value := range record {
			enc, err := EncryptField(value, key)
			if err != nil {
				return fmt.Errorf("failed to encrypt %s: %w", field, err)
			}
			encrypted[field] = enc
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.backend.Set(kind.String(), encrypted); err != nil {
		return fmt.Errorf("failed to store %s credentials: %w", kind, err)
	}

	s.logger.Debug("Stored %d field(s) for %s", len(encrypted), kind)
	return nil
}

// GetCredentials returns the decrypted record of kind. A kind that was never
// stored yields an empty record.
func (s *Store) GetCredentials(kind Kind) (Record, error) {
	if _, err := kind.rule(); err != nil {
		return nil, err
	}

	stored, ok, err := s.backend.Get(kind.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s credentials: %w", kind, err)
	}
	if !ok {
		s.logger.Debug("No stored credentials for %s", kind)
		return Record{}, nil
	}

	fields := make([]string, 0, len(stored))
	for field := range stored {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	record := make(Record, len(stored))
	err = s.key.WithBytes(func(key []byte) error {
		for _, field := range fields {
			value, err := DecryptField(stored[field], key)
			if err != nil {
				return fmt.Errorf("field %s of %s: %w", field, kind, err)
			}
			record[field] = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// HasCredentials reports whether a record of kind is stored.
func (s *Store) HasCredentials(kind Kind) (bool, error) {
	if _, err := kind.rule(); err != nil {
		return false, err
	}

	_, ok, err := s.backend.Get(kind.String())
	if err != nil {
		return false, fmt.Errorf("failed to read %s credentials: %w", kind, err)
	}
	return ok, nil
}

// ClearCredentials removes the stored record of kind.
func (s *Store) ClearCredentials(kind Kind) error {
	if _, err := kind.rule(); err != nil {
		return err
	}

	if err := s.backend.Delete(kind.String()); err != nil {
		return fmt.Errorf("failed to clear %s credentials: %w", kind, err)
	}

	s.logger.Debug("Cleared credentials for %s", kind)
	return nil
}

// Close destroys the protected key. The store is unusable afterwards.
func (s *Store) Close() {
	s.key.Destroy()
}
