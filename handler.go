//go:build linux

package reactor

// ReadOutcome is what a Handler reports after consuming input.
type ReadOutcome int

const (
	// NeedMoreInput leaves the input buffered and re-arms read interest.
	NeedMoreInput ReadOutcome = iota
	// ResponseReady means a response is staged in Output and should be written.
	ResponseReady
	// ReadFatal tears the connection down.
	ReadFatal
)

func (o ReadOutcome) String() string {
	switch o {
	case NeedMoreInput:
		return "need_more_input"
	case ResponseReady:
		return "response_ready"
	case ReadFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// WriteOutcome is what a Handler reports after trying to write a response.
type WriteOutcome int

const (
	Drained WriteOutcome = iota
	WouldBlock
	WriteFatal
)

func (o WriteOutcome) String() string {
	switch o {
	case Drained:
		return "drained"
	case WouldBlock:
		return "would_block"
	case WriteFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Handler implements a protocol on top of the server. Its methods run on
// worker goroutines, one at a time per connection.
//
// HandleReadable must consume from Input whatever it turns into a response;
// the server calls it again while input remains after a drained write.
// HandleWritable usually just returns c.Flush().
type Handler interface {
	HandleReadable(c *Connection) ReadOutcome
	HandleWritable(c *Connection) WriteOutcome
	IsKeepAlive(c *Connection) bool
}
