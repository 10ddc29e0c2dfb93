//go:build linux

// Package echo is a line-oriented echo protocol for the reactor server.
// Every complete line is written back; a line reading "quit" ends the
// connection once earlier lines have been echoed.
package echo

import (
	"bytes"

	"github.com/gotcp/reactor"
)

const (
	DEFAULT_MAX_LINE = 64 * 1024
)

var quitCommand = []byte("quit")

type Handler struct {
	// MaxLine bounds how much input may be buffered without a newline.
	// Zero or less means unbounded.
	MaxLine int
}

func New() *Handler {
	return &Handler{MaxLine: DEFAULT_MAX_LINE}
}

type state struct {
	quit bool
}

func (h *Handler) HandleReadable(c *reactor.Connection) reactor.ReadOutcome {
	var in = c.Input().B
	var end = bytes.LastIndexByte(in, '\n')
	if end < 0 {
		if h.MaxLine > 0 && len(in) > h.MaxLine {
			return reactor.ReadFatal
		}
		return reactor.NeedMoreInput
	}
	var out = c.Output()
	var lines = in[:end+1]
	for len(lines) > 0 {
		var i = bytes.IndexByte(lines, '\n')
		var line = lines[:i+1]
		lines = lines[i+1:]
		if bytes.Equal(bytes.TrimSpace(line), quitCommand) {
			connState(c).quit = true
			break
		}
		_, _ = out.Write(line)
	}
	c.Consume(end + 1)
	return reactor.ResponseReady
}

func (h *Handler) HandleWritable(c *reactor.Connection) reactor.WriteOutcome {
	return c.Flush()
}

func (h *Handler) IsKeepAlive(c *reactor.Connection) bool {
	return !connState(c).quit
}

func connState(c *reactor.Connection) *state {
	var st, ok = c.Context().(*state)
	if !ok {
		st = &state{}
		c.SetContext(st)
	}
	return st
}
