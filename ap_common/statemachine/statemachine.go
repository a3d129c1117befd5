/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package statemachine implements §4.F: the pure mapping from a machine's
// previous state plus one driving event (a power sample, a Got-alive
// handshake, a disconnect, an operator action) to its next state and the
// side effects that transition requires. Every entry point here takes the
// machine's lock itself and releases it before any suspension point
// (time.Sleep, socket write), so that the "sample -> decide -> drive"
// region each one performs is never interrupted by another goroutine's
// view of the same *machine.State.
package statemachine

import (
	"fmt"
	"time"

	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/metrics"
	"fleetpower/ap_common/powerio"
	"fleetpower/ap_common/wire"
)

// sleep is replaced in tests so the press-button and kill procedures run
// instantly instead of spending real wall-clock seconds.
var sleep = time.Sleep

// setStatus assigns m.Status and records the transition on the
// fleetpower_machine_state_transitions_total counter. Callers must already
// hold m's lock.
func setStatus(m *machine.State, s machine.Status) {
	m.Status = s
	metrics.StateTransitions.WithLabelValues(m.Machine.CanonicalName, s.String()).Inc()
}

// SensePower applies a freshly read power-sense bit to m (§4.F, "Edges
// driven by sensed-power change"). It is a no-op for machines with no wired
// sense bit, and applying the same reading twice changes nothing. The
// daemon's own sample sites (the startup sweep, the press-button and kill
// procedures, Disconnect) apply their own transitions and do not call it, and
// nothing samples the board periodically, so within the daemon a FROZEN
// machine that later loses power stays FROZEN until a kill or a new
// Got-alive changes its state.
func SensePower(m *machine.State, powered bool) {
	if !m.Machine.MonitorsPower() {
		return
	}

	m.Lock()
	defer m.Unlock()

	if !powered {
		switch m.Status {
		case machine.Off, machine.StartAfterStopped:
			// no-op
		default:
			if m.Conn != nil {
				m.Conn.Close()
			}
			m.Detach()
			setStatus(m, machine.Off)
			m.RequestedOS = machine.NoOS
		}
		return
	}

	if m.Status == machine.Off {
		setStatus(m, machine.Starting)
	}
}

// GotAlive applies an agent's "Got alive" handshake (§4.F, §6). conn is the
// freshly accepted connection that sent the handshake; platform is accepted
// but not stored or used here (restart command selection lives in the agent). Returns an error only for a handshake naming an OS
// partition the machine doesn't recognize.
func GotAlive(m *machine.State, conn machine.AgentConn, platform, partition string) error {
	m.Lock()
	defer m.Unlock()

	// At most one agent connection per machine: a handshake on a fresh
	// connection supersedes whatever was attached before it.
	if m.Conn != nil && m.Conn != conn {
		m.Conn.Close()
	}

	switch m.Status {
	case machine.Starting, machine.Stopping, machine.Frozen, machine.On:
		os, ok := m.Machine.OSByPartition(partition)
		if !ok {
			return fmt.Errorf("machine %s: unrecognized partition %q", m.Machine.CanonicalName, partition)
		}

		m.Conn = conn
		m.CurrentOS = os.Name

		if m.RequestedOS == machine.NoOS || m.RequestedOS == os.Name {
			setStatus(m, machine.On)
			m.RequestedOS = machine.NoOS
			return nil
		}

		bootOS, hasBootOS := m.Machine.BootManagerOS()
		if hasBootOS && os.Name == bootOS.Name {
			wanted, _ := m.Machine.OSByName(m.RequestedOS)
			sendReboot(conn, wanted.CmdBootToSelf)
		} else {
			sendReboot(conn, os.CmdBootToBootManager)
		}
		setStatus(m, machine.Starting)
		return nil

	case machine.StopAfterStarted:
		m.Conn = conn
		conn.SendComputer(wire.ComputerMessage{Op: wire.OpShutdown})
		setStatus(m, machine.Stopping)
		return nil

	default:
		// OFF, START_AFTER_STOPPED: a Got-alive here would contradict the
		// sense bit; attach anyway so a later disconnect/sample resolves it.
		m.Conn = conn
		os, _ := m.Machine.OSByPartition(partition)
		m.CurrentOS = os.Name
		setStatus(m, machine.On)
		return nil
	}
}

func sendReboot(conn machine.AgentConn, bootArgv []string) {
	conn.SendComputer(wire.ComputerMessage{Op: wire.OpCommand, Argv: bootArgv})
	conn.SendComputer(wire.ComputerMessage{Op: wire.OpRestart})
}

// Disconnect applies the loss of an agent connection (§4.F, "Edges driven by
// agent disconnect"). board is sampled fresh -- never the last cached
// reading -- per §4.D's "never cache sample() across a suspension point".
// conn is the connection that is going away; if the machine has already
// re-attached a newer one, the stale disconnect must not detach it.
func Disconnect(m *machine.State, board *powerio.Board, conn machine.AgentConn) error {
	m.Lock()
	defer m.Unlock()

	if conn != nil && m.Conn != nil && m.Conn != conn {
		return nil
	}

	switch m.Status {
	case machine.On, machine.Starting, machine.Stopping:
		powered, err := sampleOne(board, m.Machine.PowerBitMask)
		if err != nil {
			return err
		}
		m.Detach()
		if powered {
			setStatus(m, machine.Frozen)
		} else {
			setStatus(m, machine.Off)
			m.RequestedOS = machine.NoOS
		}
	default:
		m.Detach()
	}
	return nil
}

func sampleOne(board *powerio.Board, bit uint8) (bool, error) {
	if bit == 0 {
		return false, nil
	}
	bits, err := board.Sample()
	if err != nil {
		return false, err
	}
	return bits&bit != 0, nil
}
