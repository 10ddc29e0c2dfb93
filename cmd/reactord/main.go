//go:build linux

// Command reactord serves the echo or hello-HTTP protocol on the reactor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/felixge/fgprof"
	"github.com/gotcp/reactor"
	"github.com/gotcp/reactor/echo"
	"github.com/gotcp/reactor/httphello"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file")
	addr       = flag.String("addr", "", "listen address, overrides the config")
	workers    = flag.Int("workers", -1, "worker goroutines, overrides the config (0 = GOMAXPROCS)")
	timeout    = flag.Int("timeout", -1, "idle timeout in milliseconds, overrides the config (0 disables)")
	proto      = flag.String("proto", "http", "protocol: http or echo")
	debugAddr  = flag.String("debug-addr", "", "address for the pprof/fgprof HTTP endpoint, empty disables it")
	logLevel   = flag.String("log-level", "", "log level, overrides the config")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reactord:", err)
		os.Exit(1)
	}
}

func run() error {
	var undo, mpErr = maxprocs.Set()
	defer undo()

	var cfg, err = loadConfig()
	if err != nil {
		return err
	}
	var level, _ = reactor.ParseLogLevel(cfg.LogLevel)
	var logger = reactor.NewLogger(os.Stderr, level)
	if mpErr != nil {
		logger.Warning().Err(mpErr).Log("failed to set GOMAXPROCS")
	}
	logger.Debug().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Log("runtime")

	var handler reactor.Handler
	switch *proto {
	case "http":
		handler = httphello.New()
	case "echo":
		handler = echo.New()
	default:
		return fmt.Errorf("unknown protocol %q", *proto)
	}

	var srv *reactor.Server
	if srv, err = reactor.New(handler, cfg, reactor.WithLogger(logger)); err != nil {
		return err
	}
	srv.OnError = func(id uint64, code reactor.ErrorCode, err error) {
		if code == reactor.ERROR_TIMEOUT {
			return
		}
		logger.Warning().
			Uint64("conn", id).
			Str("code", code.String()).
			Err(err).
			Log("server error")
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	var g, gctx = errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.Stop()
		return nil
	})

	if *debugAddr != "" {
		var mux = http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.Handle("/debug/fgprof", fgprof.Handler())
		mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, _ *http.Request) {
			var snap = srv.Stats().Snapshot()
			fmt.Fprintf(w, "accepted %d\nactive %d\nclosed %d\ntimed_out %d\nrejected %d\nbytes_in %d\nbytes_out %d\n",
				snap.Accepted, snap.Active, snap.Closed, snap.TimedOut, snap.Rejected, snap.BytesIn, snap.BytesOut)
			fmt.Fprintf(w, "tasks %d\ntask_p50 %s\ntask_p99 %s\ntask_max %s\n",
				snap.Tasks, snap.TaskP50, snap.TaskP99, snap.TaskMax)
		})
		var debug = &http.Server{Addr: *debugAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := debug.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			var shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return debug.Shutdown(shutdownCtx)
		})
	}

	logger.Info().
		Str("proto", *proto).
		Str("addr", cfg.Address).
		Log("starting")
	return g.Wait()
}

func loadConfig() (reactor.Config, error) {
	var cfg = reactor.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = reactor.LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	if *timeout >= 0 {
		cfg.IdleTimeoutMs = *timeout
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, cfg.Validate()
}
