/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package daemonlife

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fleetpower/ap_common/aputil"
	"fleetpower/ap_common/conn"
	"fleetpower/ap_common/logsink"
	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/ping"
	"fleetpower/ap_common/powerio"
)

// childRestartGrace is how long the parent keeps relaying its successor's
// early stdout into its own log before exiting. It is not a wait for the
// child to come fully online -- the parent's job in §4.I is only to hand
// off and get out of the way.
const childRestartGrace = 500 * time.Millisecond

// Config collects the settings resolved from command-line flags before
// NewDaemon is called. Board must already be open: §4.I requires hardware
// initialization to succeed before anything else happens, and a failure
// there is fatal to the process, not to the Daemon value.
type Config struct {
	ListenAddr   string
	PortFile     string
	RegistryPath string
	LogPath      string
	LogMaxSizeMB int
	LogBackups   int
	MetricsAddr  string
	Board        *powerio.Board
}

// Daemon is the single, explicitly-constructed value that replaces the
// module-level mutable globals named in the design notes (machine list,
// drive-output word, shutdown log, restart flag). One Daemon is built at
// startup and threaded through every connection handler and the ping
// scheduler; nothing else holds its own copy of daemon-wide state.
type Daemon struct {
	cfg         Config
	ctx         *conn.Context
	listener    net.Listener
	sched       *ping.Scheduler
	schedCancel context.CancelFunc

	handlersMu sync.Mutex
	handlers   map[*conn.Handler]struct{}

	shutdownOnce sync.Once
	stopCh       chan struct{}
	restart      bool
}

// NewDaemon performs the startup sequence of §4.I up through binding the
// listening socket: load the machine registry, build the initial per-
// machine runtime state from a power sample, bind (or pick an ephemeral)
// listening port, and write the port file that is this daemon's single-
// instance guard.
func NewDaemon(cfg Config) (*Daemon, error) {
	reg, err := machine.Load(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}

	states, err := conn.NewStates(reg, cfg.Board)
	if err != nil {
		return nil, fmt.Errorf("initial power sweep: %w", err)
	}

	fileCore := logsink.NewFileCore(cfg.LogPath, cfg.LogMaxSizeMB, cfg.LogBackups)
	shutdownTee := logsink.NewTeeSink()
	baseLogger := shutdownTee.Wrap(fileCore)

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("binding listening socket: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	if err := WritePortFile(cfg.PortFile, port); err != nil {
		listener.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		listener: listener,
		handlers: make(map[*conn.Handler]struct{}),
		stopCh:   make(chan struct{}),
	}

	d.ctx = &conn.Context{
		Registry:        reg,
		States:          states,
		Board:           cfg.Board,
		Logger:          baseLogger,
		ShutdownTee:     shutdownTee,
		RequestShutdown: d.RequestShutdown,
	}

	d.sched = ping.New(states)

	baseLogger.Infof("listening on %s (port file %s)", listener.Addr(), cfg.PortFile)
	return d, nil
}

// RequestShutdown asks the daemon to begin an orderly shutdown (§4.I). Safe
// to call from any goroutine, any number of times; only the first call has
// an effect. restart controls whether Run spawns a successor after cleanup.
func (d *Daemon) RequestShutdown(restart bool) {
	d.shutdownOnce.Do(func() {
		d.restart = restart
		close(d.stopCh)
	})
}

// Run drives the daemon's accept loop and signal handling until a shutdown
// is requested (by an operator's `daemon stop`/`daemon restart`, or by a
// signal), then performs cleanup. It blocks until the process should exit.
func (d *Daemon) Run() {
	ServeMetrics(d.cfg.MetricsAddr)

	schedCtx, cancel := context.WithCancel(context.Background())
	d.schedCancel = cancel
	go d.sched.Run(schedCtx)

	go d.acceptLoop()
	go d.handleSignals()

	<-d.stopCh
	d.cleanup()

	if d.restart {
		d.spawnSuccessor()
	}
}

func (d *Daemon) acceptLoop() {
	for {
		c, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.stopCh:
				return
			default:
				d.ctx.Logger.Errorf("accept: %v", err)
				return
			}
		}

		if tc, ok := c.(*net.TCPConn); ok {
			if err := tuneKeepalive(tc); err != nil {
				d.ctx.Logger.Warnf("keepalive tuning for %s: %v", c.RemoteAddr(), err)
			}
		}

		h := conn.New(d.ctx, c)
		d.track(h)
		go func() {
			h.Run()
			d.untrack(h)
		}()
	}
}

func (d *Daemon) track(h *conn.Handler) {
	d.handlersMu.Lock()
	d.handlers[h] = struct{}{}
	d.handlersMu.Unlock()
}

func (d *Daemon) untrack(h *conn.Handler) {
	d.handlersMu.Lock()
	delete(d.handlers, h)
	d.handlersMu.Unlock()
}

func (d *Daemon) activeCount() int {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	return len(d.handlers)
}

// handleSignals is the second path to shutdown named in §4.I: INT, HUP, and
// TERM all request the same orderly shutdown as `daemon stop`. A second
// terminating signal, before the first finishes, is treated as the operator
// giving up on waiting and exits immediately and uncleanly.
func (d *Daemon) handleSignals() {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)

	s := <-sig
	d.ctx.Logger.Infof("signal %v received, shutting down", s)
	d.RequestShutdown(false)

	s = <-sig
	d.ctx.Logger.Errorf("second signal %v received, exiting immediately", s)
	os.Exit(1)
}

// cleanup runs §4.I's shutdown sequence: stop accepting, stop the ping
// scheduler, let in-flight handlers drain so a final LOG frame reaches the
// operator that asked for the shutdown, close the hardware, and release the
// single-instance guard. Every log line produced here also reaches the
// shutdown log via the tee SetPeer on the requesting connection.
func (d *Daemon) cleanup() {
	d.listener.Close()
	if d.schedCancel != nil {
		d.schedCancel()
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.activeCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if err := d.ctx.Board.Close(); err != nil {
		d.ctx.Logger.Errorf("closing power I/O board: %v", err)
	}

	RemovePortFile(d.cfg.PortFile)
	d.ctx.Logger.Infof("shutdown complete")
}

// spawnSuccessor implements `daemon restart`'s second half: launch a fresh
// copy of this process with the same arguments, relay its early stdout into
// this process's own log (and therefore to the operator that asked for the
// restart), then let this process exit.
func (d *Daemon) spawnSuccessor() {
	exe, err := os.Executable()
	if err != nil {
		d.ctx.Logger.Errorf("restart: resolving executable path: %v", err)
		return
	}

	child := aputil.NewChild(exe, os.Args[1:]...)
	child.LogOutputTo("successor: ", loggerWriter{d.ctx.Logger})
	if err := child.Start(); err != nil {
		d.ctx.Logger.Errorf("restart: launching successor: %v", err)
		return
	}

	d.ctx.Logger.Infof("restart: successor pid %d launched, exiting", child.Process.Pid)
	time.Sleep(childRestartGrace)
}

// loggerWriter adapts a *zap.SugaredLogger to io.Writer so aputil.Child's
// line-at-a-time stdout relay (grounded on ap_common/aputil.Child) can feed
// a structured logger instead of a plain *log.Logger.
type loggerWriter struct {
	log *zap.SugaredLogger
}

func (w loggerWriter) Write(p []byte) (int, error) {
	w.log.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// ListenPort reports the TCP port actually bound, useful for tests and for
// logging the ephemeral-port case.
func (d *Daemon) ListenPort() int {
	return d.listener.Addr().(*net.TCPAddr).Port
}
