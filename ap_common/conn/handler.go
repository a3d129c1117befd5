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
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fleetpower/ap_common/logsink"
	"fleetpower/ap_common/statemachine"
	"fleetpower/ap_common/wire"
)

// kind classifies a peer once its first message has been read.
type kind int

const (
	unclassified kind = iota
	operatorKind
	agentKind
)

const mailboxDepth = 32

// event is whatever drives one iteration of a Handler's loop: either a frame
// read off the wire, or a locally injected PING_SCHEDULE (§4.H).
type event struct {
	frame      wire.Frame
	readErr    error
	isSchedule bool
	scheduled  time.Time
}

// Handler owns one accepted socket for its entire lifetime (§4.G). It is the
// only goroutine that ever writes to the socket (via its mailbox) and the
// only goroutine that reads from it; all cross-handler communication -- a
// ping schedule, a COMPUTER frame the state machine wants relayed -- comes
// in through SendComputer/SchedulePing/SendLog rather than another handler
// touching this one's socket directly (the design notes' fix for the
// original's direct cross-handler writer access).
type Handler struct {
	ctx *Context
	id  string
	raw net.Conn
	rd  *wire.Reader
	wr  *wire.Writer

	mailbox chan wire.Frame
	events  chan event

	closeOnce sync.Once
	closed    chan struct{}

	mu          sync.Mutex
	k           kind
	machineName string // set once attached to a Machine

	log *zap.SugaredLogger
}

// New wraps an accepted socket in a Handler. Call Run in its own goroutine
// to start the reader, writer, and event loop; do not touch raw afterward.
func New(ctx *Context, raw net.Conn) *Handler {
	h := &Handler{
		ctx:     ctx,
		id:      raw.RemoteAddr().String(),
		raw:     raw,
		rd:      wire.NewReader(raw),
		wr:      wire.NewWriter(raw),
		mailbox: make(chan wire.Frame, mailboxDepth),
		events:  make(chan event, mailboxDepth),
		closed:  make(chan struct{}),
	}

	tee := logsink.NewTeeSink()
	tee.SetPeer(h)
	h.log = tee.Wrap(ctx.Logger.Desugar().Core())

	return h
}

// Run drives the handler until the connection ends, in whichever way: a
// graceful EOF, a transport error, a ping timeout, or the daemon shutting
// down. It blocks until the handler is fully torn down.
func (h *Handler) Run() {
	go h.readLoop()
	go h.writeLoop()

	for {
		select {
		case ev := <-h.events:
			if ev.readErr != nil {
				h.handleReadError(ev.readErr)
				h.Close()
				h.waitTornDown()
				return
			}
			if ev.isSchedule {
				h.handleSchedule(ev.scheduled)
			} else {
				h.dispatch(ev.frame)
			}
		case <-h.closed:
			h.waitTornDown()
			return
		}
	}
}

// waitTornDown lets the mailbox drain (so a final LOG/USER frame written
// just before close still reaches the peer) before the socket actually
// closes.
func (h *Handler) waitTornDown() {
	time.Sleep(10 * time.Millisecond)
	h.raw.Close()
	h.detachIfAttached()
}

func (h *Handler) readLoop() {
	for {
		frame, err := h.rd.ReadFrame()
		if err != nil {
			if errors.Is(err, wire.ErrClosed) {
				select {
				case h.events <- event{readErr: wire.ErrClosed}:
				case <-h.closed:
				}
				return
			}
			select {
			case h.events <- event{readErr: err}:
			case <-h.closed:
			}
			return
		}
		select {
		case h.events <- event{frame: frame}:
		case <-h.closed:
			return
		}
	}
}

func (h *Handler) writeLoop() {
	for {
		select {
		case f := <-h.mailbox:
			if err := h.wr.WriteFrame(f); err != nil {
				h.Close()
				return
			}
		case <-h.closed:
			// Drain whatever was queued before the close so a final LOG
			// frame (e.g. shutdown progress) still reaches the peer.
			for {
				select {
				case f := <-h.mailbox:
					if h.wr.WriteFrame(f) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// handleReadError logs how this connection ended, at a level matching how
// alarming the cause is (§7 error kind 2): a clean close is routine, a reset
// by the peer is expected of an agent that lost power or rebooted hard and
// only a warning, anything else is unexpected and an error.
func (h *Handler) handleReadError(err error) {
	switch {
	case errors.Is(err, wire.ErrClosed):
		h.log.Debugf("%s: connection closed", h.id)
	case errors.Is(err, syscall.ECONNRESET):
		h.log.Warnf("%s: connection reset by peer", h.id)
	default:
		h.log.Errorf("%s: transport error: %v", h.id, err)
	}
}

// enqueue puts f on the mailbox without blocking the caller's goroutine
// forever if this handler is already closing.
func (h *Handler) enqueue(f wire.Frame) {
	select {
	case h.mailbox <- f:
	case <-h.closed:
	}
}

// SendComputer implements machine.AgentConn.
func (h *Handler) SendComputer(m wire.ComputerMessage) error {
	payload, err := wire.EncodeComputerMessage(m)
	if err != nil {
		return err
	}
	h.enqueue(wire.Frame{Type: wire.COMPUTER, Payload: payload})
	return nil
}

// SendLog implements logsink.PeerSink: it is how this handler's own
// messages, and (when it is the designated shutdown log) the daemon's
// cleanup messages, reach the remote peer as LOG frames.
func (h *Handler) SendLog(level, message string) {
	h.enqueue(wire.Frame{Type: wire.LOG, Payload: []byte("[" + level + "] " + message)})
}

// SchedulePing implements machine.AgentConn: it hands the ping scheduler's
// "please ping" event to this connection's own event loop rather than
// performing any socket I/O itself.
func (h *Handler) SchedulePing(now time.Time) {
	select {
	case h.events <- event{isSchedule: true, scheduled: now}:
	case <-h.closed:
	}
}

// Close tears down the connection. Idempotent; safe to call from any
// goroutine, including this handler's own.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() { close(h.closed) })
	return nil
}

func (h *Handler) detachIfAttached() {
	if st, ok := h.attachedMachine(); ok {
		statemachine.Disconnect(st, h.ctx.Board, h)
	}
}
