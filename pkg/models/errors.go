package models

import "fmt"

// ValidationKind classifies resolver failures. These never reach the network.
type ValidationKind string

const (
	ValidationMissingField ValidationKind = "missing_field"
	ValidationBadValue     ValidationKind = "bad_value"
	ValidationNoAuthMethod ValidationKind = "no_auth_method"
	ValidationKeyFormat    ValidationKind = "key_format"
)

type ValidationError struct {
	Kind  ValidationKind
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s (%s)", e.Field, e.Kind)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(kind ValidationKind, field string, err error) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Err: err}
}

// ConnectErrorKind classifies handshake/auth phase failures.
type ConnectErrorKind string

const (
	ConnectAuthFailed      ConnectErrorKind = "auth_failed"
	ConnectTimeout         ConnectErrorKind = "timeout"
	ConnectHostUnreachable ConnectErrorKind = "host_unreachable"
	ConnectKeyError        ConnectErrorKind = "key_error"
)

type ConnectError struct {
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed (%s): %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func NewConnectError(kind ConnectErrorKind, err error) *ConnectError {
	return &ConnectError{Kind: kind, Err: err}
}

// ChannelError is a post-connect I/O failure on the interactive channel.
// It always escalates to the Failed state and full teardown.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s failed: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

func NewChannelError(op string, err error) *ChannelError {
	return &ChannelError{Op: op, Err: err}
}

// TransferErrorKind classifies terminal transfer-job failures. A transfer
// error is scoped to its job and never affects the interactive session.
type TransferErrorKind string

const (
	TransferIOError          TransferErrorKind = "io_error"
	TransferRemoteNotFound   TransferErrorKind = "remote_not_found"
	TransferPermissionDenied TransferErrorKind = "permission_denied"
	TransferTransportLost    TransferErrorKind = "transport_lost"
)

type TransferError struct {
	Kind TransferErrorKind
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed (%s): %v", e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func NewTransferError(kind TransferErrorKind, err error) *TransferError {
	return &TransferError{Kind: kind, Err: err}
}
