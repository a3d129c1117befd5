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
	"strings"

	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/statemachine"
	"fleetpower/ap_common/wire"
)

// handleUser decodes and dispatches one USER-channel command (§4.G). Unknown
// verbs, unknown machine names, and missing arguments all become an
// error-level LOG frame and leave state untouched (§7.5); they never tear
// down the connection.
func (h *Handler) handleUser(payload []byte) {
	req, err := wire.DecodeUserRequest(payload)
	if err != nil {
		h.log.Errorf("malformed USER frame: %v", err)
		return
	}

	switch req.Verb {
	case "daemon":
		h.cmdDaemon(req.Args)
	case "status":
		h.cmdStatus(req.Args)
	case "start":
		h.cmdStart(req.Args, false)
	case "restart":
		h.cmdStart(req.Args, true)
	case "stop":
		h.cmdStop(req.Args)
	case "kill":
		h.cmdKill(req.Args)
	case "command":
		h.cmdCommand(req.Args)
	case "list":
		h.log.Errorf("list: not implemented yet")
	default:
		h.log.Errorf("unknown command %q", req.Verb)
	}
}

func (h *Handler) cmdDaemon(args []string) {
	if len(args) != 1 {
		h.log.Errorf("daemon: expected stop|restart")
		return
	}
	switch args[0] {
	case "stop":
		h.ctx.ShutdownTee.SetPeer(h)
		h.log.Infof("shutdown requested by %s", h.id)
		h.ctx.RequestShutdown(false)
	case "restart":
		h.ctx.ShutdownTee.SetPeer(h)
		h.log.Infof("restart requested by %s", h.id)
		h.ctx.RequestShutdown(true)
	default:
		h.log.Errorf("daemon: expected stop|restart, got %q", args[0])
	}
}

func (h *Handler) cmdStatus(args []string) {
	machineReadable := false
	names := args[:0:0]
	for _, a := range args {
		if a == "--machine-readable" {
			machineReadable = true
			continue
		}
		names = append(names, a)
	}

	if len(names) == 0 {
		for _, m := range h.ctx.Registry.All() {
			names = append(names, m.CanonicalName)
		}
	}

	for _, name := range names {
		st, ok := h.ctx.Lookup(name)
		if !ok {
			h.log.Errorf("status: unknown machine %q", name)
			continue
		}

		st.Lock()
		state := st.Status.String()
		st.Unlock()

		if machineReadable {
			payload, _ := wire.EncodeUserReply(wire.UserReply{Machine: name, State: state})
			h.enqueue(wire.Frame{Type: wire.USER, Payload: payload})
		} else {
			h.log.Infof("%s: %s", name, state)
		}
	}
}

func (h *Handler) cmdStart(args []string, restart bool) {
	if len(args) < 1 {
		h.log.Errorf("start: expected a machine name")
		return
	}
	st, ok := h.ctx.Lookup(args[0])
	if !ok {
		h.log.Errorf("start: unknown machine %q", args[0])
		return
	}

	os := machine.NoOS
	if len(args) > 1 {
		rec, ok := st.Machine.OSByName(args[1])
		if !ok {
			h.log.Errorf("start: %s has no OS named %q", st.Machine.CanonicalName, args[1])
			return
		}
		os = rec.Name
	}

	if err := statemachine.Start(st, h.ctx.Board, os, restart); err != nil {
		h.log.Errorf("%v", err)
	}
}

func (h *Handler) cmdStop(args []string) {
	if len(args) != 1 {
		h.log.Errorf("stop: expected a machine name")
		return
	}
	st, ok := h.ctx.Lookup(args[0])
	if !ok {
		h.log.Errorf("stop: unknown machine %q", args[0])
		return
	}
	if err := statemachine.Stop(st); err != nil {
		h.log.Errorf("%v", err)
	}
}

func (h *Handler) cmdKill(args []string) {
	if len(args) != 1 {
		h.log.Errorf("kill: expected a machine name")
		return
	}
	st, ok := h.ctx.Lookup(args[0])
	if !ok {
		h.log.Errorf("kill: unknown machine %q", args[0])
		return
	}

	result, err := statemachine.Kill(st, h.ctx.Board)
	if err != nil {
		h.log.Errorf("kill %s: %v", args[0], err)
		return
	}
	if result.Success {
		h.log.Infof("kill %s: succeeded after %s", args[0], result.Elapsed)
	} else {
		h.log.Errorf("kill %s: machine still powered after %s", args[0], result.Elapsed)
	}
}

func (h *Handler) cmdCommand(args []string) {
	if len(args) < 2 {
		h.log.Errorf("command: expected a machine name and an argument vector")
		return
	}
	st, ok := h.ctx.Lookup(args[0])
	if !ok {
		h.log.Errorf("command: unknown machine %q", args[0])
		return
	}
	if err := statemachine.Command(st, args[1:]); err != nil {
		h.log.Errorf("command %s: %v", strings.Join(args, " "), err)
	}
}
