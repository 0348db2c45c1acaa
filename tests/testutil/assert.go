package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSecretRedacted verifies that secretValue does not appear in output
// and that the [REDACTED] marker does.
//
// Example usage:
//
//	stdout, _, _ := execute(cmd, "", "get", "bitbucket-oauth2")
//	AssertSecretRedacted(t, stdout, consumerSecret)
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertNoSecretLeak verifies that none of secrets appear in any of outputs.
func AssertNoSecretLeak(t *testing.T, secrets []string, outputs ...string) {
	t.Helper()

	for _, out := range outputs {
		for _, secret := range secrets {
			assert.NotContains(t, out, secret, "Secret value %q leaked into output", secret)
		}
	}
}

// AssertFileMode verifies that path exists with exactly the given permission bits.
func AssertFileMode(t *testing.T, path string, mode os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err, "File should exist: %s", path)
	assert.Equal(t, mode, info.Mode().Perm(), "Unexpected permissions on %s", path)
}

// AssertFileNotContains verifies that the file at path does not contain any of values.
func AssertFileNotContains(t *testing.T, path string, values ...string) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file %s", path)

	for _, v := range values {
		assert.NotContains(t, string(data), v, "File %s should not contain %q", path, v)
	}
}
