package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

var (
	// ErrEmpty is returned when protecting an empty value
	ErrEmpty = errors.New("secure: refusing to protect an empty value")

	// ErrDestroyed is returned when using a buffer after Destroy
	ErrDestroyed = errors.New("secure: buffer has been destroyed")
)

// SecureBuffer provides memory-safe storage for key material.
// It wraps memguard.Enclave so the plaintext only exists in a locked
// buffer while it is in use.
type SecureBuffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy() calls and prevents use after destroy
	destroyed bool
}

// NewSecureBuffer creates a protected buffer from a copy of data.
// The caller's slice is left untouched; wiping it is the caller's job.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	// memguard wipes the source it is given, so hand it a copy
	src := make([]byte, len(data))
	copy(src, data)

	return &SecureBuffer{
		enclave: memguard.NewEnclave(src),
	}, nil
}

// Open decrypts and returns the protected data in a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}

	return s.enclave.Open()
}

// WithBytes opens the buffer, passes the plaintext to fn and wipes it afterwards.
func (s *SecureBuffer) WithBytes(fn func([]byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroy marks this SecureBuffer as destroyed and prevents further use.
// It is idempotent.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}

	s.enclave = nil
	s.destroyed = true
}

// Purge wipes every memguard key and buffer. Call it once before exit.
func Purge() {
	memguard.Purge()
}
