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
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh/terminal"

	"fleetpower/ap_common/wire"
)

// idleTimeout bounds how long powerctl waits for the next frame once a
// command has been sent. The wire protocol has no explicit "reply complete"
// marker (§4.B), so a bounded idle read, not a fixed total deadline, is how
// the client knows the daemon has said everything it's going to say.
const idleTimeout = 3 * time.Second

// resolveAddr returns addr unchanged if non-empty, otherwise reads the
// decimal port out of portFile (the same file powerd's single-instance
// guard writes) and returns that port on localhost.
func resolveAddr(addr, portFile string) (string, error) {
	if addr != "" {
		return addr, nil
	}

	data, err := ioutil.ReadFile(portFile)
	if err != nil {
		return "", fmt.Errorf("reading powerd port file %s: %w", portFile, err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("parsing powerd port file %s: %w", portFile, err)
	}
	return fmt.Sprintf("127.0.0.1:%d", port), nil
}

// runCommand sends one USER-channel command and prints whatever comes back.
// A nil return means "exit 0"; per §6 that includes `daemon stop` issued
// against a daemon that isn't reachable (it's already stopped).
func runCommand(addr, verb string, args []string) error {
	conn, err := net.DialTimeout("tcp", addr, idleTimeout)
	if err != nil {
		if verb == "daemon" && len(args) == 1 && args[0] == "stop" {
			return nil
		}
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	payload, err := wire.EncodeUserRequest(wire.UserRequest{Verb: verb, Args: args})
	if err != nil {
		return err
	}

	wr := wire.NewWriter(conn)
	if err := wr.WriteFrame(wire.Frame{Type: wire.USER, Payload: payload}); err != nil {
		return fmt.Errorf("sending %s command: %w", verb, err)
	}

	machineReadable := false
	for _, a := range args {
		if a == "--machine-readable" {
			machineReadable = true
		}
	}

	return readReplies(conn, machineReadable)
}

func readReplies(conn net.Conn, machineReadable bool) error {
	rd := wire.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		frame, err := rd.ReadFrame()
		if err != nil {
			if errors.Is(err, wire.ErrClosed) || isTimeout(err) {
				return nil
			}
			return fmt.Errorf("reading reply: %w", err)
		}

		switch frame.Type {
		case wire.LOG:
			printLine(string(frame.Payload))

		case wire.USER:
			reply, err := wire.DecodeUserReply(frame.Payload)
			if err != nil {
				continue
			}
			if machineReadable {
				printLine(reply.State)
			} else {
				printLine(fmt.Sprintf("%-20s %s", reply.Machine, reply.State))
			}
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// printLine truncates line to the current terminal width before printing,
// exactly as ap-ctl/ctl.go's printLine does, falling back to printing it
// whole when the width can't be determined (e.g. output piped to a file).
func printLine(line string) {
	width, _, err := terminal.GetSize(0)
	if err != nil {
		fmt.Println(line)
		return
	}
	if width > 0 && width < len(line) {
		line = line[:width]
	}
	fmt.Println(line)
}
