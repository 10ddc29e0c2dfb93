package reactor

import (
	"errors"
)

var (
	ErrLoopAlreadyRunning = errors.New("reactor: loop is already running")
	ErrLoopTerminated     = errors.New("reactor: loop has been terminated")
	ErrNotInLoop          = errors.New("reactor: call made off the loop goroutine")
	ErrCloseInLoop        = errors.New("reactor: cannot close from within the loop")
)

var (
	ErrFDAlreadyRegistered = errors.New("poller: fd already registered")
	ErrFDNotRegistered     = errors.New("poller: fd not registered")
	ErrChannelError        = errors.New("poller: error condition on fd")
)

var (
	ErrTimerNotFound = errors.New("timer: id not found")
)

var (
	ErrorGetPoolBuffer = errors.New("get pool buffer error")
	ErrPoolClosed      = errors.New("worker pool is closed")
	ErrServerBusy      = errors.New("server busy")
	ErrIdleTimeout     = errors.New("connection idle timeout")
	ErrHandlerFatal    = errors.New("handler reported a fatal outcome")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrInvalidAddress  = errors.New("invalid listen address")
)
