/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package main

import (
	"context"
	"errors"
	"net"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetpower/ap_common/wire"
)

const (
	dialTimeout = 5 * time.Second
	minBackoff  = time.Second
	maxBackoff  = 30 * time.Second
)

// Agent is the companion program of §6/FULL COMPONENT LIST item L: it holds
// an outbound connection to the daemon open for its whole life, replies to
// PING_REQUEST, and executes whatever COMPUTER frame arrives.
type Agent struct {
	addr        string
	machineName string
	partition   string
	plat        platform
	instanceID  uuid.UUID
	log         *zap.SugaredLogger
}

// NewAgent builds an Agent. instanceID distinguishes successive reconnects
// of the same machine in the daemon's (and this process's own) logs.
func NewAgent(addr, machineName, partition string, log *zap.SugaredLogger) *Agent {
	return &Agent{
		addr:        addr,
		machineName: machineName,
		partition:   partition,
		plat:        newPlatform(),
		instanceID:  uuid.New(),
		log:         log,
	}
}

// Run dials the daemon, reconnecting with exponential backoff on any
// disconnect, until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		if err := a.runOnce(ctx); err != nil {
			a.log.Warnf("instance %s: connection to %s ended: %v (retrying in %s)",
				a.instanceID, a.addr, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce performs one connect-handshake-serve cycle. It returns nil only
// when the daemon closed the connection cleanly.
func (a *Agent) runOnce(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", a.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	rd := wire.NewReader(conn)
	wr := wire.NewWriter(conn)

	hello, err := wire.EncodeComputerMessage(wire.ComputerMessage{
		Op:        wire.OpGotAlive,
		Machine:   a.machineName,
		Platform:  a.plat.name(),
		Partition: a.partition,
	})
	if err != nil {
		return err
	}
	if err := wr.WriteFrame(wire.Frame{Type: wire.COMPUTER, Payload: hello}); err != nil {
		return err
	}

	a.log.Infof("instance %s: connected to %s as %s (%s, partition %s)",
		a.instanceID, a.addr, a.machineName, a.plat.name(), a.partition)

	for {
		frame, err := rd.ReadFrame()
		if err != nil {
			if errors.Is(err, wire.ErrClosed) {
				return nil
			}
			return err
		}

		switch frame.Type {
		case wire.COMPUTER:
			a.handleComputer(wr, frame.Payload)
		case wire.PingRequest:
			if err := wr.WriteFrame(wire.Frame{Type: wire.PingAnswer, Payload: frame.Payload}); err != nil {
				return err
			}
		case wire.LOG:
			a.log.Infof("daemon: %s", frame.Payload)
		}
	}
}

func (a *Agent) handleComputer(wr *wire.Writer, payload []byte) {
	msg, err := wire.DecodeComputerMessage(payload)
	if err != nil {
		a.log.Errorf("malformed COMPUTER frame: %v", err)
		return
	}

	switch msg.Op {
	case wire.OpShutdown:
		a.log.Infof("shutdown requested by daemon")
		if err := a.plat.scheduleShutdown(); err != nil {
			a.log.Errorf("scheduling shutdown: %v", err)
		}
	case wire.OpRestart:
		a.log.Infof("restart requested by daemon")
		if err := a.plat.reboot(); err != nil {
			a.log.Errorf("rebooting: %v", err)
		}
	case wire.OpCommand:
		a.runCommand(wr, msg.Argv)
	default:
		a.log.Warnf("unexpected op %q from daemon", msg.Op)
	}
}

// runCommand executes an arbitrary argument vector the daemon sent (e.g. a
// machine's cmdBootToSelf/cmdBootToBootManager vector) and reports the exit
// code and combined output back as a COMPUTER frame, per §6.
func (a *Agent) runCommand(wr *wire.Writer, argv []string) {
	if len(argv) == 0 {
		a.log.Errorf("command: empty argument vector")
		return
	}

	out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	reply, err := wire.EncodeComputerMessage(wire.ComputerMessage{
		Op:       wire.OpCommand,
		ExitCode: exitCode,
		Output:   string(out),
	})
	if err != nil {
		a.log.Errorf("encoding command reply: %v", err)
		return
	}
	if err := wr.WriteFrame(wire.Frame{Type: wire.COMPUTER, Payload: reply}); err != nil {
		a.log.Errorf("sending command reply: %v", err)
	}
}
