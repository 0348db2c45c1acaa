// Package testutil provides testing utilities for opscreds.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/systmms/opscreds/pkg/exec"
)

// MockCommandExecutor is a configurable exec.CommandExecutor for tests of
// CLI-backed code (sft, ssh, scp, mysql).
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args)
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute and Attach for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool
}

var _ exec.CommandExecutor = (*MockCommandExecutor)(nil)

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout   []byte
	Stderr   []byte
	Err      error
	ExitCode int
}

// RecordedCall stores information about a command execution.
type RecordedCall struct {
	Command  string
	Args     []string
	Attached bool
	Context  context.Context
}

// Line returns the call as a single space-separated string.
func (c RecordedCall) Line() string {
	return buildKey(c.Command, c.Args)
}

// Script returns the command line passed to the shell, or "" for direct calls.
func (c RecordedCall) Script() string {
	if c.Command != exec.Shell || len(c.Args) != 2 || c.Args[0] != "-c" {
		return ""
	}
	return c.Args[1]
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command: name,
		Args:    args,
		Context: ctx,
	})

	resp, err := m.lookup(buildKey(name, args))
	if err != nil {
		return nil, nil, err
	}
	return resp.Stdout, resp.Stderr, resp.Err
}

// Attach records the call and returns the configured error, if any.
func (m *MockCommandExecutor) Attach(ctx context.Context, name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command:  name,
		Args:     args,
		Attached: true,
		Context:  ctx,
	})

	resp, err := m.lookup(buildKey(name, args))
	if err != nil {
		return err
	}
	return resp.Err
}

func (m *MockCommandExecutor) lookup(key string) (MockResponse, error) {
	if resp, ok := m.Responses[key]; ok {
		return resp, nil
	}

	// Longest matching pattern wins so overlapping prefixes are deterministic
	best := -1
	var match MockResponse
	for pattern, resp := range m.Responses {
		if matchesPattern(key, pattern) && len(pattern) > best {
			best = len(pattern)
			match = resp
		}
	}
	if best >= 0 {
		return match, nil
	}

	if m.DefaultResponse != nil {
		return *m.DefaultResponse, nil
	}

	if m.StrictMode {
		return MockResponse{}, fmt.Errorf("mock: no response configured for command: %s", key)
	}

	return MockResponse{Stdout: []byte{}, Stderr: []byte{}}, nil
}

func buildKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// matchesPattern supports prefix patterns, with "*" marking where the prefix ends.
func matchesPattern(key, pattern string) bool {
	if i := strings.Index(pattern, "*"); i >= 0 {
		return strings.HasPrefix(key, pattern[:i])
	}
	return strings.HasPrefix(key, pattern)
}

// AddResponse registers a mock response for a specific command pattern.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddJSONResponse is a convenience method to add a JSON response.
func (m *MockCommandExecutor) AddJSONResponse(commandPattern string, jsonData string) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte(jsonData),
		Stderr: []byte{},
	})
}

// AddErrorResponse adds an error response for a command pattern.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, errMsg string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout:   []byte{},
		Stderr:   []byte(errMsg),
		Err:      fmt.Errorf("exit status %d: %s", exitCode, errMsg),
		ExitCode: exitCode,
	})
}

// Calls returns a copy of every recorded call.
func (m *MockCommandExecutor) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedCall(nil), m.RecordedCalls...)
}

// Scripts returns the shell command lines passed through exec.Shell, in call order.
func (m *MockCommandExecutor) Scripts() []string {
	var out []string
	for _, call := range m.Calls() {
		if s := call.Script(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GetCalls returns all recorded calls matching the given command name.
func (m *MockCommandExecutor) GetCalls(commandName string) []RecordedCall {
	var matches []RecordedCall
	for _, call := range m.Calls() {
		if call.Command == commandName {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of recorded calls.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// Reset clears all recorded calls and responses.
func (m *MockCommandExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = make(map[string]MockResponse)
	m.RecordedCalls = make([]RecordedCall, 0)
	m.DefaultResponse = nil
}

// AssertCalled verifies that a specific command was called at least once.
func (m *MockCommandExecutor) AssertCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) == 0 {
		t.Error("expected command", commandName, "to be called, but it was not")
		return false
	}
	return true
}

// AssertNotCalled verifies that a specific command was never called.
func (m *MockCommandExecutor) AssertNotCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) > 0 {
		t.Error("expected command", commandName, "to not be called, but it was called", len(calls), "times")
		return false
	}
	return true
}

// AssertCallCount verifies the exact number of times a command was called.
func (m *MockCommandExecutor) AssertCallCount(t interface{ Error(args ...interface{}) }, commandName string, expected int) bool {
	calls := m.GetCalls(commandName)
	if len(calls) != expected {
		t.Error("expected command", commandName, "to be called", expected, "times, but was called", len(calls), "times")
		return false
	}
	return true
}

// ASAMockResponses provides pre-configured responses for the ScaleFT sft CLI.
type ASAMockResponses struct{}

// ListServers returns `sft list-servers -o json` output for the given hostnames.
// Each server belongs to the "ops" team and project "proj-<hostname>".
func (ASAMockResponses) ListServers(hostnames ...string) MockResponse {
	entries := make([]string, 0, len(hostnames))
	for i, h := range hostnames {
		entries = append(entries, fmt.Sprintf(`{
			"id": "srv-%d",
			"hostname": %q,
			"project_name": "proj-%s",
			"team_name": "ops",
			"access_address": "10.0.0.%d"
		}`, i+1, h, h, i+1))
	}
	return MockResponse{Stdout: []byte("[" + strings.Join(entries, ",") + "]")}
}

// ListAccounts returns `sft list-accounts -o json` output with one active account.
func (ASAMockResponses) ListAccounts(team, username string) MockResponse {
	return MockResponse{
		Stdout: []byte(fmt.Sprintf(`[{"account": %q, "username": %q, "status": "ACTIVE"}]`, team, username)),
	}
}

// ListTeams returns `sft list-teams` output for an enrolled client.
func (ASAMockResponses) ListTeams(teams ...string) MockResponse {
	return MockResponse{Stdout: []byte("TEAM\n" + strings.Join(teams, "\n") + "\n")}
}

// NotEnrolled returns the failure sft prints on a client without enrolment.
func (ASAMockResponses) NotEnrolled() MockResponse {
	msg := "error: no enrolled teams found; run sft enroll"
	return MockResponse{
		Stderr:   []byte(msg),
		Err:      fmt.Errorf("exit status 1: %s", msg),
		ExitCode: 1,
	}
}
