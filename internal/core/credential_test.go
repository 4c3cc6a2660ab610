package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretToken = "eyJydW5uZXIiOiJzZWNyZXQtbWF0ZXJpYWwifQ"

func TestJobCredential_NeverFormatsToken(t *testing.T) {
	cred := NewJobCredential("1001", 77, "warden-1001", secretToken)

	outputs := []string{
		cred.String(),
		fmt.Sprintf("%v", cred),
		fmt.Sprintf("%+v", cred),
		fmt.Sprintf("%#v", cred),
	}

	raw, err := json.Marshal(cred)
	require.NoError(t, err)
	outputs = append(outputs, string(raw))

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("issued", "credential", cred)
	outputs = append(outputs, buf.String())

	for _, out := range outputs {
		assert.NotContains(t, out, secretToken)
		assert.Contains(t, out, "[REDACTED]")
	}
}

func TestJobCredential_ConsumeOnce(t *testing.T) {
	cred := NewJobCredential("1001", 77, "warden-1001", secretToken)
	assert.False(t, cred.Consumed())

	token, err := cred.Consume()
	require.NoError(t, err)
	assert.Equal(t, secretToken, token)
	assert.True(t, cred.Consumed())

	token, err = cred.Consume()
	assert.ErrorIs(t, err, ErrCredentialConsumed)
	assert.Empty(t, token)
}

func TestProvisioningErrors(t *testing.T) {
	cause := errors.New("upstream 503")

	var issueErr error = &CredentialIssuanceError{JobID: "1", Err: cause}
	assert.ErrorIs(t, issueErr, ErrProvisioning)
	assert.ErrorIs(t, issueErr, cause)

	var launchErr error = &LaunchError{JobID: "1", Err: cause}
	assert.ErrorIs(t, launchErr, ErrProvisioning)
	assert.ErrorIs(t, launchErr, cause)

	var target *LaunchError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", launchErr), &target))
	assert.False(t, errors.Is(issueErr, ErrAdmissionDenied))
}
