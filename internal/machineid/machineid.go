// Package machineid provides the stable host identifier that local
// credential encryption keys are derived from.
package machineid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
)

// Source returns a stable identifier of the current machine.
type Source interface {
	ID() (string, error)
}

// Host reads the operating system's machine ID (/etc/machine-id, IOPlatformUUID,
// MachineGuid) and returns its SHA-256 hex digest.
type Host struct {
	read func() (string, error)
}

// NewHost creates a source backed by the OS machine ID
func NewHost() *Host {
	return &Host{read: machineid.ID}
}

func (h *Host) ID() (string, error) {
	raw, err := h.read()
	if err != nil {
		return "", fmt.Errorf("failed to read machine id: %w", err)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("machine id is empty")
	}

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}

// Static always returns the same identifier.
type Static string

func (s Static) ID() (string, error) {
	if s == "" {
		return "", errors.New("machine id is empty")
	}
	return string(s), nil
}

// FromEnv returns a Static source when the variable is set, otherwise fallback.
func FromEnv(name string, fallback Source) Source {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return Static(v)
	}
	return fallback
}
