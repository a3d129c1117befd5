/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package wire implements the framed message protocol shared by the daemon,
// the operator CLI, and the per-machine agent.
package wire

// Type identifies the payload carried by a Frame.
type Type uint32

// The fixed set of message types exchanged over the wire. EOF is synthetic
// and never actually transmitted; it is how a connection handler represents
// "the peer went away" to itself.
const (
	EOF Type = iota
	LOG
	USER
	COMPUTER
	PingSchedule
	PingRequest
	PingAnswer
)

var typeNames = map[Type]string{
	EOF:          "EOF",
	LOG:          "LOG",
	USER:         "USER",
	COMPUTER:     "COMPUTER",
	PingSchedule: "PING_SCHEDULE",
	PingRequest:  "PING_REQUEST",
	PingAnswer:   "PING_ANSWER",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}
