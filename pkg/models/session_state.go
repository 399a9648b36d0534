package models

// SessionState is the lifecycle state of one SSH session. Transitions are
// totally ordered; the supervisor serializes them under its lock.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CanConnect reports whether a connect attempt may start from this state.
// A session that failed must be reconnected explicitly; one that is already
// connecting or connected rejects further attempts.
func (s SessionState) CanConnect() bool {
	return s == StateDisconnected || s == StateFailed
}

// IsTerminal reports whether the session holds no live resources.
func (s SessionState) IsTerminal() bool {
	return s == StateDisconnected || s == StateFailed
}
