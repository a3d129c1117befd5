/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package machine

import (
	"sync"
	"time"

	"fleetpower/ap_common/wire"
)

// Status is one of the seven states a Machine can occupy (§4.F).
type Status int

// The seven states, in the order spec §4.F introduces them.
const (
	Off Status = iota
	Starting
	On
	Stopping
	Frozen
	StartAfterStopped
	StopAfterStarted
)

var statusNames = map[Status]string{
	Off:               "OFF",
	Starting:          "STARTING",
	On:                "ON",
	Stopping:          "STOPPING",
	Frozen:            "FROZEN",
	StartAfterStopped: "START_AFTER_STOPPED",
	StopAfterStarted:  "STOP_AFTER_STARTED",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// AgentConn is the narrow interface State needs from an attached agent
// connection. It is defined here, not imported from ap_common/conn, so that
// Machine holds a weak handle rather than a direct reference into the
// connection handler's mutable fields (DESIGN NOTES: resolving the
// MachineState<->Connection cyclic graph). ap_common/conn.Handler satisfies
// this interface structurally.
type AgentConn interface {
	// SendComputer queues a COMPUTER frame to be written by the
	// connection's own writer goroutine; it never blocks on I/O.
	SendComputer(wire.ComputerMessage) error
	// Close tears down the connection. Idempotent.
	Close() error
	// SchedulePing injects a PING_SCHEDULE event carrying now into the
	// connection's own inbound event stream (§4.H); the ping scheduler
	// never touches the socket directly.
	SchedulePing(now time.Time)
}

// State is the mutable, per-machine runtime record (§3 MachineState).
// Every field is guarded by the embedded mutex; callers must hold it across
// a read-decide-write region per §5 rather than reading fields directly.
type State struct {
	sync.Mutex

	Machine *Machine

	Status      Status
	CurrentOS   string // valid iff Status == On
	RequestedOS string // NoOS sentinel when nothing was asked for

	Conn AgentConn // nil unless an agent is attached

	LastPingSent  time.Time
	LastPingAcked time.Time
}

// NewState builds the initial runtime record for a configured machine. The
// caller is expected to immediately reconcile it against a power sample
// (§4.I startup sweep) before it is exposed to any other goroutine.
func NewState(m *Machine) *State {
	return &State{
		Machine:     m,
		Status:      Off,
		RequestedOS: NoOS,
	}
}

// Attached reports whether an agent connection is currently attached. Caller
// must hold the lock.
func (s *State) Attached() bool {
	return s.Conn != nil
}

// Detach clears the connection and ping bookkeeping. Caller must hold the
// lock; it does not itself decide the resulting Status -- callers in
// ap_common/statemachine always set Status immediately before or after.
func (s *State) Detach() {
	s.Conn = nil
	s.LastPingSent = time.Time{}
	s.LastPingAcked = time.Time{}
}
