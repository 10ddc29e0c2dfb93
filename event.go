package reactor

// Lifecycle hooks. They run on the hook thread pool, never on the loop
// goroutine. A hook that blocks holds up later notifications; once
// HookQueueLength of them are waiting, new ones are dropped and counted in
// StatsSnapshot.HooksDropped.
type OnAcceptEvent func(id uint64, remote string)
type OnCloseEvent func(id uint64, reason CloseReason)
type OnErrorEvent func(id uint64, code ErrorCode, err error)

// CloseReason records why a connection was torn down.
type CloseReason int

const (
	CloseDone CloseReason = iota
	ClosePeer
	CloseTimeout
	CloseError
	CloseProtocol
	CloseAbandoned
	CloseShutdown
)

func (r CloseReason) String() string {
	switch r {
	case CloseDone:
		return "done"
	case ClosePeer:
		return "peer"
	case CloseTimeout:
		return "timeout"
	case CloseError:
		return "error"
	case CloseProtocol:
		return "protocol"
	case CloseAbandoned:
		return "abandoned"
	case CloseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
