package reactor

import (
	"time"

	"github.com/joeycumines/logiface"
)

type reactorOptions struct {
	workers       int
	pollTimeoutMs int
	maxEvents     int
	logger        *logiface.Logger[logiface.Event]
	clock         func() time.Time
}

// Option configures a Reactor.
type Option func(*reactorOptions)

func resolveOptions(opts []Option) *reactorOptions {
	var o = &reactorOptions{
		pollTimeoutMs: -1,
		maxEvents:     DEFAULT_EPOLL_EVENTS,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o
}

// WithWorkers sets the worker pool size. Zero or less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *reactorOptions) {
		o.workers = n
	}
}

// WithPollTimeout caps how long a single poll may block, rounded up to a
// whole millisecond. A negative value lets it block until an event or a
// timer deadline; zero makes every poll return at once.
func WithPollTimeout(d time.Duration) Option {
	return func(o *reactorOptions) {
		if d < 0 {
			o.pollTimeoutMs = -1
			return
		}
		o.pollTimeoutMs = int((d + time.Millisecond - 1) / time.Millisecond)
	}
}

func WithMaxEvents(n int) Option {
	return func(o *reactorOptions) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(o *reactorOptions) {
		o.logger = logger
	}
}

// WithClock replaces the time source used by the timer heap.
func WithClock(now func() time.Time) Option {
	return func(o *reactorOptions) {
		o.clock = now
	}
}
