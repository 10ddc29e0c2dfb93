//go:build linux

package echo_test

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gotcp/reactor"
	"github.com/gotcp/reactor/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func serve(t *testing.T, h *echo.Handler, configure func(*reactor.Server)) (string, *reactor.Server) {
	t.Helper()
	var cfg = reactor.DefaultConfig()
	cfg.Workers = 2
	srv, err := reactor.New(h, cfg)
	require.NoError(t, err)
	if configure != nil {
		configure(srv)
	}
	fd, err := reactor.Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr, err := reactor.LocalAddr(fd)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(fd) }()
	t.Cleanup(func() {
		srv.Stop()
		<-done
		_ = unix.Close(fd)
	})
	return addr, srv
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func TestEcho_pipelinedLines(t *testing.T) {
	addr, _ := serve(t, echo.New(), nil)
	conn := dial(t, addr)

	_, err := conn.Write([]byte("a\nbb\nccc\n"))
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	for _, want := range []string{"a\n", "bb\n", "ccc\n"} {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
}

func TestEcho_quitEchoesEarlierLinesThenCloses(t *testing.T) {
	addr, srv := serve(t, echo.New(), nil)
	conn := dial(t, addr)

	_, err := conn.Write([]byte("one\ntwo\nquit\nnever\n"))
	require.NoError(t, err)
	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))

	require.Eventually(t, func() bool {
		return srv.Stats().Snapshot().Closed == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEcho_overlongLineIsFatal(t *testing.T) {
	var reasons = make(chan reactor.CloseReason, 1)
	addr, _ := serve(t, &echo.Handler{MaxLine: 16}, func(s *reactor.Server) {
		s.OnClose = func(id uint64, reason reactor.CloseReason) { reasons <- reason }
	})
	conn := dial(t, addr)

	_, err := conn.Write(bytes.Repeat([]byte("x"), 64))
	require.NoError(t, err)
	_, _ = io.ReadAll(conn)

	select {
	case reason := <-reasons:
		assert.Equal(t, reactor.CloseProtocol, reason)
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not closed")
	}
}

func TestEcho_unboundedLine(t *testing.T) {
	addr, _ := serve(t, &echo.Handler{}, nil)
	conn := dial(t, addr)

	var line = append(bytes.Repeat([]byte("y"), 200*1024), '\n')
	go func() { _, _ = conn.Write(line) }()
	got := make([]byte, len(line))
	_, err := io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, line, got)
}
