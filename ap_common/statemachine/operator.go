/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package statemachine

import (
	"fmt"
	"time"

	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/powerio"
	"fleetpower/ap_common/wire"
)

// pressTick and killTick are the 500 ms sample intervals named throughout
// §4.F; both procedures are expressed in terms of them so the timeouts in
// §7.6 (4 ticks for start, 12 for kill) read straight off the spec.
const (
	pressTick    = 500 * time.Millisecond
	releaseDelay = 100 * time.Millisecond
	startTicks   = 3
	killTicks    = 12
)

// Start applies the operator `start`/`restart` action (§4.F table, row
// "start(os)"). os may be machine.NoOS when the operator didn't ask for a
// particular boot target. restart distinguishes `start` from `restart` for
// an already-ON machine: only `restart` re-issues the boot chain when os
// names something other than currentOS.
func Start(m *machine.State, board *powerio.Board, os string, restart bool) error {
	m.Lock()
	status := m.Status
	m.Unlock()

	switch status {
	case machine.Off:
		if err := pressButtonProcedure(m, board); err != nil {
			return err
		}
		if os != machine.NoOS {
			m.Lock()
			m.RequestedOS = os
			m.Unlock()
		}
		return nil

	case machine.Starting:
		m.Lock()
		m.RequestedOS = os
		m.Unlock()
		return nil

	case machine.On:
		m.Lock()
		defer m.Unlock()
		if !restart || os == machine.NoOS || os == m.CurrentOS || m.Conn == nil {
			return nil
		}
		bootOS, hasBootOS := m.Machine.BootManagerOS()
		if hasBootOS && m.CurrentOS == bootOS.Name {
			wanted, _ := m.Machine.OSByName(os)
			sendReboot(m.Conn, wanted.CmdBootToSelf)
		} else {
			cur, _ := m.Machine.OSByName(m.CurrentOS)
			sendReboot(m.Conn, cur.CmdBootToBootManager)
		}
		m.RequestedOS = os
		setStatus(m, machine.Starting)
		return nil

	case machine.Stopping:
		m.Lock()
		setStatus(m, machine.StartAfterStopped)
		m.Unlock()
		return nil

	case machine.StopAfterStarted:
		m.Lock()
		setStatus(m, machine.Starting)
		m.Unlock()
		return nil

	default:
		// FROZEN, START_AFTER_STOPPED: no-op.
		return nil
	}
}

// pressButtonProcedure implements the press-button procedure (§4.F). It
// presses, waits, releases, waits, and samples up to startTicks+1 times
// looking for the machine to leave OFF.
func pressButtonProcedure(m *machine.State, board *powerio.Board) error {
	bit := m.Machine.PowerBitMask
	if bit == 0 {
		return fmt.Errorf("%s has no power wiring", m.Machine.CanonicalName)
	}

	if err := board.PressAndRelease(bit, func() { sleep(pressTick) }); err != nil {
		return err
	}
	sleep(releaseDelay)

	powered, err := sampleOne(board, bit)
	if err != nil {
		return err
	}
	for i := 0; !powered && i < startTicks; i++ {
		sleep(pressTick)
		powered, err = sampleOne(board, bit)
		if err != nil {
			return err
		}
	}

	m.Lock()
	if powered {
		setStatus(m, machine.Starting)
	}
	left := m.Status != machine.Off
	m.Unlock()

	if !left {
		return fmt.Errorf("failed to start %s", m.Machine.CanonicalName)
	}
	return nil
}

// Stop applies the operator `stop` action (§4.F table, row "stop").
func Stop(m *machine.State) error {
	m.Lock()
	defer m.Unlock()

	switch m.Status {
	case machine.Starting:
		setStatus(m, machine.StopAfterStarted)
	case machine.On:
		if m.Conn != nil {
			m.Conn.SendComputer(wire.ComputerMessage{Op: wire.OpShutdown})
		}
		setStatus(m, machine.Stopping)
	case machine.StartAfterStopped:
		setStatus(m, machine.Stopping)
	}
	return nil
}

// KillResult reports the outcome of the kill procedure.
type KillResult struct {
	Success bool
	Elapsed time.Duration
}

// Kill applies the operator `kill` action. Every state except OFF runs the
// kill procedure (§4.F table, row "kill"), pressing the button and holding
// it until the sense bit drops or killTicks elapse. Against an already-OFF
// machine it is a no-op: the button is never touched, since pressing it
// would risk powering the machine ON instead.
func Kill(m *machine.State, board *powerio.Board) (KillResult, error) {
	m.Lock()
	if m.Status == machine.Off {
		m.Unlock()
		return KillResult{Success: true}, nil
	}
	bit := m.Machine.PowerBitMask
	conn := m.Conn
	m.Unlock()

	if conn != nil {
		conn.Close()
	}

	if err := board.PressButton(bit); err != nil {
		return KillResult{}, err
	}

	start := time.Now()
	powered := true
	var err error
	for i := 0; i < killTicks; i++ {
		sleep(pressTick)
		powered, err = sampleOne(board, bit)
		if err != nil {
			board.ReleaseButton(bit)
			return KillResult{}, err
		}
		if !powered {
			break
		}
	}
	elapsed := time.Since(start)

	if relErr := board.ReleaseButton(bit); relErr != nil {
		return KillResult{}, relErr
	}

	powered, err = sampleOne(board, bit)
	if err != nil {
		return KillResult{}, err
	}

	m.Lock()
	m.Detach()
	if powered {
		setStatus(m, machine.Frozen)
	} else {
		setStatus(m, machine.Off)
		m.RequestedOS = machine.NoOS
	}
	m.Unlock()

	return KillResult{Success: !powered, Elapsed: elapsed}, nil
}

// Command applies the operator `command` action: forward argv to the agent
// if, and only if, the machine is ON (§4.F table, row "command"). Every
// other state is an operator-misuse error (§7.5) -- the caller logs it back
// to the operator and takes no further action.
func Command(m *machine.State, argv []string) error {
	m.Lock()
	defer m.Unlock()

	if m.Status != machine.On || m.Conn == nil {
		return fmt.Errorf("%s is not ON", m.Machine.CanonicalName)
	}
	return m.Conn.SendComputer(wire.ComputerMessage{Op: wire.OpCommand, Argv: argv})
}
