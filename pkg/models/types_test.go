package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinHostPort(t *testing.T) {
	assert.Equal(t, "example.com:22", JoinHostPort("example.com", 22))
	assert.Equal(t, "[::1]:2222", JoinHostPort("::1", 2222))
}

func TestAuthMethodPassword(t *testing.T) {
	auth := PasswordAuth("secret")
	assert.True(t, auth.HasPassword())
	assert.False(t, auth.HasPrivateKey())
	assert.Len(t, auth.SSHAuthMethods(), 1)
}

func TestAuthMethodZeroValue(t *testing.T) {
	var auth AuthMethod
	assert.False(t, auth.HasPassword())
	assert.False(t, auth.HasPrivateKey())
	assert.Empty(t, auth.SSHAuthMethods())
}

func TestSessionStateTransitions(t *testing.T) {
	assert.True(t, StateDisconnected.CanConnect())
	assert.True(t, StateFailed.CanConnect())
	assert.False(t, StateConnecting.CanConnect())
	assert.False(t, StateConnected.CanConnect())
	assert.False(t, StateDisconnecting.CanConnect())

	assert.True(t, StateDisconnected.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateConnected.IsTerminal())
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "Connected", StateConnected.String())
	assert.Equal(t, "Failed", StateFailed.String())
}

func TestTransferJobIDsUnique(t *testing.T) {
	a := NewTransferJob(TransferUpload, "/tmp/a", "/r/a")
	b := NewTransferJob(TransferDownload, "/tmp/b", "/r/b")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TransferPending, a.Status)
	assert.False(t, a.Status.IsTerminal())
	assert.True(t, TransferSucceeded.IsTerminal())
	assert.True(t, TransferFailed.IsTerminal())
}

func TestErrorTaxonomyUnwrap(t *testing.T) {
	cause := errors.New("root cause")

	assert.ErrorIs(t, NewValidationError(ValidationBadValue, "port", cause), cause)
	assert.ErrorIs(t, NewConnectError(ConnectTimeout, cause), cause)
	assert.ErrorIs(t, NewChannelError("read", cause), cause)
	assert.ErrorIs(t, NewTransferError(TransferIOError, cause), cause)
}

func TestConnectErrorMessage(t *testing.T) {
	err := NewConnectError(ConnectAuthFailed, errors.New("bad password"))
	assert.Contains(t, err.Error(), "auth_failed")
	assert.Contains(t, err.Error(), "bad password")
}
