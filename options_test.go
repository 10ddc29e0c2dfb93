package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithPollTimeout_roundsUp(t *testing.T) {
	for _, tc := range []struct {
		in   time.Duration
		want int
	}{
		{-time.Second, -1},
		{0, 0},
		{time.Nanosecond, 1},
		{500 * time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{250 * time.Millisecond, 250},
	} {
		o := resolveOptions([]Option{WithPollTimeout(tc.in)})
		assert.Equal(t, tc.want, o.pollTimeoutMs, "WithPollTimeout(%v)", tc.in)
	}
}

func TestResolveOptions_defaults(t *testing.T) {
	o := resolveOptions(nil)
	assert.Equal(t, -1, o.pollTimeoutMs)
	assert.Equal(t, DEFAULT_EPOLL_EVENTS, o.maxEvents)
	assert.NotNil(t, o.clock)
}
