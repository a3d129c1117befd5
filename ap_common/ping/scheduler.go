/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package ping implements the liveness scheduler (§4.H): a single
// long-lived periodic task that, every ping period, injects a "please ping"
// event into the connection of every machine that is ON with an agent
// attached. It never touches a
// socket itself -- SchedulePing hands the event to the connection handler
// that owns the socket.
package ping

import (
	"context"
	"time"

	"fleetpower/ap_common/machine"
)

// Period is the fixed interval named in §4.H.
const Period = 10 * time.Second

// Scheduler periodically visits every machine in states and, for each one
// currently ON with an agent attached, asks its connection to ping.
type Scheduler struct {
	states map[string]*machine.State
	period time.Duration
}

// New returns a Scheduler over states, which the caller continues to
// mutate; Scheduler only ever reads the map structure (never the states
// themselves without taking each one's lock).
func New(states map[string]*machine.State) *Scheduler {
	return &Scheduler{states: states, period: Period}
}

// Run blocks, firing every period until ctx is cancelled. Call it in its own
// goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick()
		}
	}
}

// tick is the one fix named in the design notes for bug (a): it iterates
// the active MACHINES, not a separately tracked connection list, so there is
// no way for a connection to be pinged after its owning machine has already
// detached.
func (s *Scheduler) tick() {
	now := time.Now()
	for _, st := range s.states {
		st.Lock()
		attached := st.Status == machine.On && st.Conn != nil
		conn := st.Conn
		st.Unlock()

		if attached {
			conn.SchedulePing(now)
		}
	}
}
