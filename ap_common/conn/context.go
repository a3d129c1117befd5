/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package conn implements the per-connection handler (§4.G): one instance
// per accepted socket, reading framed messages, classifying the peer as an
// operator or an agent on its first message, and dispatching to either the
// operator command table or the state machine.
package conn

import (
	"go.uber.org/zap"

	"fleetpower/ap_common/logsink"
	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/powerio"
)

// Context is the consolidated, explicitly-constructed set of daemon-wide
// resources a Handler needs. It replaces the module-level mutable globals
// named in the design notes (machine list, drive-output word, shutdown log,
// restart flag) with one value built once at startup and handed to every
// handler and to the ping scheduler.
type Context struct {
	Registry *machine.Registry
	States   map[string]*machine.State
	Board    *powerio.Board
	Logger   *zap.SugaredLogger

	// ShutdownTee is wired into the base logger so that, once a
	// `daemon stop`/`daemon restart` command designates a shutdown log,
	// every subsequent record (including ones produced by cleanup, from
	// goroutines with no connection of their own) is also delivered to
	// that operator (§4.I, §4.J).
	ShutdownTee *logsink.TeeSink

	// RequestShutdown asks the daemon lifecycle to begin an orderly
	// shutdown (restart=true for `daemon restart`). It is safe to call
	// from any handler goroutine.
	RequestShutdown func(restart bool)
}

// NewStates builds the per-machine runtime records for every machine in reg,
// in their §4.I startup states: STARTING if sensed powered (power bit
// non-zero and currently asserted), otherwise OFF.
func NewStates(reg *machine.Registry, board *powerio.Board) (map[string]*machine.State, error) {
	sense, err := board.Sample()
	if err != nil {
		return nil, err
	}

	states := make(map[string]*machine.State, len(reg.All()))
	for _, m := range reg.All() {
		st := machine.NewState(m)
		if m.MonitorsPower() && sense&m.PowerBitMask != 0 {
			st.Status = machine.Starting
		}
		states[m.CanonicalName] = st
	}
	return states, nil
}

// Lookup resolves an operator-supplied name to its runtime state via the
// registry's alias table.
func (c *Context) Lookup(name string) (*machine.State, bool) {
	m, ok := c.Registry.Lookup(name)
	if !ok {
		return nil, false
	}
	return c.States[m.CanonicalName], true
}
