package engine

import "fmt"

// State is the driver's lifecycle position.
//
//	Starting -> Handshaking -> Ready -> Terminated
//	                |            |
//	                v            v
//	        HandshakeFailed   IOFailed
//
// Terminated, HandshakeFailed and IOFailed are terminal.
type State int32

const (
	StateStarting State = iota
	StateHandshaking
	StateReady
	StateTerminated
	StateHandshakeFailed
	StateIOFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	case StateHandshakeFailed:
		return "handshake-failed"
	case StateIOFailed:
		return "io-failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further commands will be serviced.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateHandshakeFailed || s == StateIOFailed
}
