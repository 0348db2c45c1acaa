package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/pkg/credentials"
	"github.com/systmms/opscreds/tests/testutil"
)

const (
	consumerKey    = "xA9kQ2mZ7pL4tR8wYc"
	consumerSecret = "Zq8Lm3Np7Rt2Vx6Yb1Cd5Fg9Hj4Kk0Ws"
)

func TestCredentialsLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, stderr, err := execute(NewCredentialsCommand(h.rt), consumerKey+"\n"+consumerSecret+"\n", "set", "bitbucket-oauth2")
	require.NoError(t, err)
	assert.Equal(t, "consumer_key: consumer_secret: ", stderr)
	assert.Equal(t, 1, h.backend.Len())

	stored, ok, err := h.backend.Get(string(credentials.KindBitbucketOAuth2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, consumerKey, stored["consumer_key"])

	stdout, _, err := execute(NewCredentialsCommand(h.rt), "", "get", "bitbucket-oauth2")
	require.NoError(t, err)
	assert.Equal(t, "consumer_key: [REDACTED]\nconsumer_secret: [REDACTED]\n", stdout)
	testutil.AssertSecretRedacted(t, stdout, consumerSecret)

	stdout, _, err = execute(NewCredentialsCommand(h.rt), "", "get", "bitbucket-oauth2", "--reveal")
	require.NoError(t, err)
	assert.Equal(t, "consumer_key: "+consumerKey+"\nconsumer_secret: "+consumerSecret+"\n", stdout)

	stdout, _, err = execute(NewCredentialsCommand(h.rt), "", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "KIND")
	assert.Regexp(t, `bitbucket-oauth2\s+2\s+yes`, stdout)

	_, _, err = execute(NewCredentialsCommand(h.rt), "", "clear", "bitbucket-oauth2")
	require.NoError(t, err)
	assert.Equal(t, 0, h.backend.Len())

	h.log.AssertContains(t, "Stored bitbucket-oauth2 credentials")
	h.log.AssertContains(t, "Cleared bitbucket-oauth2 credentials")
	h.log.AssertLogCount(t, "info", 2)
	testutil.AssertNoSecretLeak(t, []string{consumerKey, consumerSecret}, h.log.GetOutput())

	_, _, err = execute(NewCredentialsCommand(h.rt), "", "get", "bitbucket-oauth2")
	var userErr operrors.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "No bitbucket-oauth2 credentials stored", userErr.Message)
}

func TestCredentialsSet_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, _, err := execute(NewCredentialsCommand(h.rt), "short\n"+consumerSecret+"\n", "set", "bitbucket-oauth2")

	var schemaErr *credentials.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, 0, h.backend.Len())
}

func TestCredentials_UnknownKind(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, sub := range []string{"set", "get", "clear"} {
		_, _, err := execute(NewCredentialsCommand(h.rt), "", sub, "github-token")
		require.Error(t, err, sub)
		assert.Contains(t, err.Error(), "Unknown credential kind 'github-token'")
	}
}

func TestCredentialsGet_OtherMachine(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, _, err := execute(NewCredentialsCommand(h.rt), consumerKey+"\n"+consumerSecret+"\n", "set", "bitbucket-oauth2")
	require.NoError(t, err)

	h.rt.Identity = otherMachine{}
	_, _, err = execute(NewCredentialsCommand(h.rt), "", "get", "bitbucket-oauth2")
	assert.ErrorIs(t, err, credentials.ErrDecrypt)
}

type otherMachine struct{}

func (otherMachine) ID() (string, error) { return "another-machine", nil }
