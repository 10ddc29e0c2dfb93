//go:build linux

// Package httphello answers every HTTP/1.x request with a fixed plain-text
// body, honouring keep-alive and pipelining.
package httphello

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gotcp/reactor"
)

const (
	DEFAULT_MAX_REQUEST = 64 * 1024
	DEFAULT_BODY        = "Hello, World!\n"
)

var headerEnd = []byte("\r\n\r\n")

type Handler struct {
	Body []byte
	// MaxRequest bounds a single buffered request, headers and body.
	MaxRequest int
}

func New() *Handler {
	return &Handler{
		Body:       []byte(DEFAULT_BODY),
		MaxRequest: DEFAULT_MAX_REQUEST,
	}
}

type state struct {
	keepAlive bool
}

func (h *Handler) HandleReadable(c *reactor.Connection) reactor.ReadOutcome {
	var in = c.Input().B
	if h.MaxRequest > 0 && len(in) > h.MaxRequest {
		return h.reject(c, http.StatusRequestEntityTooLarge)
	}
	if !bytes.Contains(in, headerEnd) {
		return reactor.NeedMoreInput
	}

	var src = bytes.NewReader(in)
	var br = bufio.NewReaderSize(src, len(in))
	var req, err = http.ReadRequest(br)
	if err != nil {
		return h.reject(c, http.StatusBadRequest)
	}
	if _, err = io.Copy(io.Discard, req.Body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return reactor.NeedMoreInput
		}
		return h.reject(c, http.StatusBadRequest)
	}
	c.Consume(len(in) - src.Len() - br.Buffered())

	var keepAlive = !req.Close
	connState(c).keepAlive = keepAlive
	h.respond(c, http.StatusOK, keepAlive, h.Body)
	return reactor.ResponseReady
}

func (h *Handler) HandleWritable(c *reactor.Connection) reactor.WriteOutcome {
	return c.Flush()
}

func (h *Handler) IsKeepAlive(c *reactor.Connection) bool {
	return connState(c).keepAlive
}

// reject answers with status and closes once it is written.
func (h *Handler) reject(c *reactor.Connection, status int) reactor.ReadOutcome {
	c.Input().Reset()
	connState(c).keepAlive = false
	h.respond(c, status, false, []byte(http.StatusText(status)+"\n"))
	return reactor.ResponseReady
}

func (h *Handler) respond(c *reactor.Connection, status int, keepAlive bool, body []byte) {
	var out = c.Output()
	_, _ = out.WriteString("HTTP/1.1 " + strconv.Itoa(status) + " " + http.StatusText(status) + "\r\n")
	_, _ = out.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	_, _ = out.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	if keepAlive {
		_, _ = out.WriteString("Connection: keep-alive\r\n\r\n")
	} else {
		_, _ = out.WriteString("Connection: close\r\n\r\n")
	}
	_, _ = out.Write(body)
}

func connState(c *reactor.Connection) *state {
	var st, ok = c.Context().(*state)
	if !ok {
		st = &state{keepAlive: true}
		c.SetContext(st)
	}
	return st
}
