package reactor

type ErrorCode int

const (
	ERROR_ACCEPT            ErrorCode = 1
	ERROR_ADD_CONNECTION    ErrorCode = 2
	ERROR_CLOSE_CONNECTION  ErrorCode = 3
	ERROR_READ              ErrorCode = 4
	ERROR_EPOLL_WAIT        ErrorCode = 5
	ERROR_STOP              ErrorCode = 6
	ERROR_POOL_BUFFER       ErrorCode = 7
	ERROR_WRITE             ErrorCode = 8
	ERROR_TIMEOUT           ErrorCode = 9
	ERROR_SERVER_BUSY       ErrorCode = 10
	ERROR_POOL_CLOSED       ErrorCode = 11
	ERROR_MODIFY_CONNECTION ErrorCode = 12
	ERROR_PROTOCOL          ErrorCode = 13
)

func (c ErrorCode) String() string {
	switch c {
	case ERROR_ACCEPT:
		return "accept"
	case ERROR_ADD_CONNECTION:
		return "add_connection"
	case ERROR_CLOSE_CONNECTION:
		return "close_connection"
	case ERROR_READ:
		return "read"
	case ERROR_EPOLL_WAIT:
		return "epoll_wait"
	case ERROR_STOP:
		return "stop"
	case ERROR_POOL_BUFFER:
		return "pool_buffer"
	case ERROR_WRITE:
		return "write"
	case ERROR_TIMEOUT:
		return "timeout"
	case ERROR_SERVER_BUSY:
		return "server_busy"
	case ERROR_POOL_CLOSED:
		return "pool_closed"
	case ERROR_MODIFY_CONNECTION:
		return "modify_connection"
	case ERROR_PROTOCOL:
		return "protocol"
	default:
		return "unknown"
	}
}
