package execution

import "sync"

// ConnectionState is the engine-API health state machine of spec.md §6:
// ONLINE -> SYNCED -> SYNCING -> OFFLINE -> AUTH_FAILED, driven by payload
// status responses or transport error classification.
type ConnectionState uint8

const (
	StateOnline ConnectionState = iota
	StateSynced
	StateSyncing
	StateOffline
	StateAuthFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateOnline:
		return "ONLINE"
	case StateSynced:
		return "SYNCED"
	case StateSyncing:
		return "SYNCING"
	case StateOffline:
		return "OFFLINE"
	case StateAuthFailed:
		return "AUTH_FAILED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionTracker holds the current engine connection state and applies
// the transitions spec.md §6 and scenario S7 describe.
type ConnectionTracker struct {
	mu    sync.Mutex
	state ConnectionState
}

func NewConnectionTracker() *ConnectionTracker {
	return &ConnectionTracker{state: StateOnline}
}

func (c *ConnectionTracker) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnPayloadStatus updates state from a decoded payload-status response.
func (c *ConnectionTracker) OnPayloadStatus(status PayloadStatusCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch status {
	case StatusValid:
		c.state = StateSynced
	case StatusSyncing, StatusAccepted:
		c.state = StateSyncing
	}
}

// TransportErrorCode classifies the network-layer errors spec.md §6 maps to
// fatal states.
type TransportErrorCode uint8

const (
	TransportErrNone TransportErrorCode = iota
	TransportErrConnRefused   // ECONNREFUSED and other ECONN*/ENOTFOUND-class
	TransportErrConnReset     // ECONNRESET/ECONNABORTED
)

// OnTransportError applies the fatal transport-error transitions: fatal
// ECONN*/ENOTFOUND-class errors go OFFLINE; ECONNRESET/ECONNABORTED go
// AUTH_FAILED.
func (c *ConnectionTracker) OnTransportError(code TransportErrorCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch code {
	case TransportErrConnRefused:
		c.state = StateOffline
	case TransportErrConnReset:
		c.state = StateAuthFailed
	}
}

// RequestTransition attempts to move to targetState explicitly. An
// OFFLINE -> ONLINE transition is only permitted when requested explicitly
// with a successful payload status already observed; this method is that
// explicit request path, per spec.md's Open Question resolution requiring
// an explicit successful payload response before promotion out of OFFLINE.
func (c *ConnectionTracker) RequestTransition(targetState ConnectionState, lastPayloadStatus PayloadStatusCode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOffline && targetState == StateOnline {
		if lastPayloadStatus != StatusValid {
			return false
		}
	}
	c.state = targetState
	return true
}
