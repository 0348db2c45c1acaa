// Package inventory defines the interface to server directories.
//
// An inventory provider lists the servers a user may reach and the accounts
// they hold on each team. opscreds never talks to servers directly to find
// them: every lookup starts from the provider's server list, whose hostnames
// are server keys (see package serverkey).
//
// # Providers
//
// Two providers ship with opscreds:
//   - asa: the ScaleFT / Okta Advanced Server Access client (`sft`)
//   - static: a YAML file listing servers and accounts, for offline use
//
// Implementations live in internal/providers and are created from the
// `inventory` section of opscreds.yaml.
//
// # Enrolment
//
// Directory-backed providers require the local client to be enrolled before
// servers can be listed. Callers check IsEnrolled first and, when it reports
// false, surface EnrollCommand to the user.
//
// # Threading and Concurrency
//
// Provider implementations must be safe for concurrent use.
package inventory

import (
	"context"
	"fmt"
)

// Provider lists servers and accounts from a server directory.
type Provider interface {
	// Name returns the display name of the directory (e.g. "ASA").
	Name() string

	// ListServers returns every server visible to the current user.
	ListServers(ctx context.Context) ([]Server, error)

	// ListAccounts returns the user's account on every team.
	ListAccounts(ctx context.Context) ([]Account, error)

	// IsEnrolled reports whether the local client can query the directory.
	IsEnrolled(ctx context.Context) (bool, error)

	// EnrollCommand returns the command a user runs to enrol this machine.
	EnrollCommand() string
}

// Server is a directory entry. Hostname carries the server key.
type Server struct {
	ID            string `json:"id" yaml:"id"`
	Hostname      string `json:"hostname" yaml:"hostname"`
	ProjectName   string `json:"project_name" yaml:"project_name"`
	TeamName      string `json:"team_name" yaml:"team_name"`
	AccessAddress string `json:"access_address" yaml:"access_address"`
}

// Account is the user's identity on a team.
type Account struct {
	Account  string `json:"account" yaml:"account"`
	Username string `json:"username" yaml:"username"`
	Status   string `json:"status" yaml:"status"`
}

// FindServer returns the server whose hostname equals hostname.
func FindServer(servers []Server, hostname string) (Server, bool) {
	for _, s := range servers {
		if s.Hostname == hostname {
			return s, true
		}
	}
	return Server{}, false
}

// FindAccount returns the account held on team.
func FindAccount(accounts []Account, team string) (Account, bool) {
	for _, a := range accounts {
		if a.Account == team {
			return a, true
		}
	}
	return Account{}, false
}

// Hostnames extracts the hostname of every server.
func Hostnames(servers []Server) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Hostname
	}
	return out
}

// NotFoundError indicates that no directory entry exists for a server key.
type NotFoundError struct {
	// Provider is the display name of the directory.
	Provider string

	// Key is the server key that was looked up.
	Key string
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("No entry '%s' available in %s", e.Key, e.Provider)
}

// NotEnrolledError indicates that the local client is not enrolled.
type NotEnrolledError struct {
	Provider      string
	EnrollCommand string
}

func (e NotEnrolledError) Error() string {
	return fmt.Sprintf("You are not connected to %s. Please run %s", e.Provider, e.EnrollCommand)
}

// EnsureEnrolled returns a NotEnrolledError when p is not enrolled.
func EnsureEnrolled(ctx context.Context, p Provider) error {
	ok, err := p.IsEnrolled(ctx)
	if err != nil {
		return fmt.Errorf("failed to check %s enrolment: %w", p.Name(), err)
	}
	if !ok {
		return NotEnrolledError{Provider: p.Name(), EnrollCommand: p.EnrollCommand()}
	}
	return nil
}
