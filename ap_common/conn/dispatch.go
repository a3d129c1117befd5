/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package conn

import (
	"time"

	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/metrics"
	"fleetpower/ap_common/statemachine"
	"fleetpower/ap_common/wire"
)

// dispatch routes one inbound frame to the right handling per §4.G. The
// first frame on a connection determines its kind for the rest of the
// connection's life.
func (h *Handler) dispatch(f wire.Frame) {
	h.mu.Lock()
	k := h.k
	h.mu.Unlock()

	if k == unclassified {
		h.classify(f)
		return
	}

	switch f.Type {
	case wire.PingRequest:
		h.enqueue(wire.Frame{Type: wire.PingAnswer, Payload: f.Payload})

	case wire.PingAnswer:
		h.recordPingAck(f.Payload)

	case wire.USER:
		if k == operatorKind {
			h.handleUser(f.Payload)
		}

	case wire.COMPUTER:
		if k == agentKind {
			h.handleComputer(f.Payload)
		}

	default:
		h.log.Errorf("unexpected frame type %s", f.Type)
	}
}

func (h *Handler) classify(f wire.Frame) {
	switch f.Type {
	case wire.USER:
		h.mu.Lock()
		h.k = operatorKind
		h.mu.Unlock()
		h.handleUser(f.Payload)

	case wire.COMPUTER:
		msg, err := wire.DecodeComputerMessage(f.Payload)
		if err != nil || msg.Op != wire.OpGotAlive {
			h.log.Errorf("first message from %s is not a valid Got-alive handshake", h.id)
			return
		}
		st, ok := h.ctx.Lookup(msg.Machine)
		if !ok {
			h.log.Errorf("Got-alive from unknown machine %q", msg.Machine)
			return
		}
		h.mu.Lock()
		h.k = agentKind
		h.machineName = st.Machine.CanonicalName
		h.mu.Unlock()

		if err := statemachine.GotAlive(st, h, msg.Platform, msg.Partition); err != nil {
			h.log.Errorf("%s: %v", st.Machine.CanonicalName, err)
		}

	default:
		h.log.Errorf("unclassifiable first message from %s: %s", h.id, f.Type)
	}
}

func (h *Handler) recordPingAck(payload []byte) {
	ts, err := wire.DecodeTimestamp(payload)
	if err != nil {
		h.log.Errorf("malformed PING_ANSWER: %v", err)
		return
	}

	h.mu.Lock()
	name := h.machineName
	h.mu.Unlock()
	st, ok := h.ctx.States[name]
	if !ok {
		return
	}

	st.Lock()
	st.LastPingAcked = time.Unix(0, ts)
	st.Unlock()

	metrics.PingRoundTrips.WithLabelValues(name).Inc()
}

// handleSchedule applies a locally injected PING_SCHEDULE event (§4.H):
// if the last ping sent was never acked, the peer is declared lost;
// otherwise a fresh PING_REQUEST goes out.
func (h *Handler) handleSchedule(now time.Time) {
	h.mu.Lock()
	name := h.machineName
	h.mu.Unlock()
	st, ok := h.ctx.States[name]
	if !ok {
		return
	}

	st.Lock()
	lost := !st.LastPingSent.IsZero() && !st.LastPingSent.Equal(st.LastPingAcked)
	if !lost {
		st.LastPingSent = now
	}
	st.Unlock()

	if lost {
		h.log.Warnf("%s: ping timed out, declaring connection lost", st.Machine.CanonicalName)
		h.Close()
		statemachine.Disconnect(st, h.ctx.Board, h)
		return
	}

	h.enqueue(wire.Frame{Type: wire.PingRequest, Payload: wire.EncodeTimestamp(now.UnixNano())})
}

func (h *Handler) handleComputer(payload []byte) {
	msg, err := wire.DecodeComputerMessage(payload)
	if err != nil {
		h.log.Errorf("malformed COMPUTER frame: %v", err)
		return
	}
	if msg.Op == wire.OpGotAlive {
		// A repeat handshake on an already-classified connection; ignore.
		return
	}
	h.log.Infof("%s replied to command: exit=%d output=%q", h.machineName, msg.ExitCode, msg.Output)
}

// attachedMachine resolves this handler's attached Machine, if any.
func (h *Handler) attachedMachine() (*machine.State, bool) {
	h.mu.Lock()
	name := h.machineName
	h.mu.Unlock()
	if name == "" {
		return nil, false
	}
	st, ok := h.ctx.States[name]
	return st, ok
}
