/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// UserRequest is the payload of a USER frame sent operator -> daemon. Verb
// and Args mirror the tagged-first-field dispatch of the original source
// (params[0] == "start", etc), re-expressed as a decoded sum type instead of
// runtime string comparisons scattered through the handler.
type UserRequest struct {
	Verb string   `json:"verb"`
	Args []string `json:"args,omitempty"`
}

// EncodeUserRequest marshals a UserRequest for transmission in a USER frame.
func EncodeUserRequest(r UserRequest) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding user request: %w", err)
	}
	return b, nil
}

// DecodeUserRequest unmarshals the payload of an inbound USER frame from an
// operator.
func DecodeUserRequest(payload []byte) (UserRequest, error) {
	var r UserRequest
	if err := json.Unmarshal(payload, &r); err != nil {
		return UserRequest{}, fmt.Errorf("decoding user request: %w", err)
	}
	return r, nil
}

// UserReply is the payload of a USER frame sent daemon -> operator in
// response to a --machine-readable status query: the queried machine's name
// and its state, where State is always one of the seven state names.
type UserReply struct {
	Machine string `json:"machine"`
	State   string `json:"state"`
}

// EncodeUserReply marshals a UserReply.
func EncodeUserReply(r UserReply) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding user reply: %w", err)
	}
	return b, nil
}

// DecodeUserReply unmarshals a UserReply payload.
func DecodeUserReply(payload []byte) (UserReply, error) {
	var r UserReply
	if err := json.Unmarshal(payload, &r); err != nil {
		return UserReply{}, fmt.Errorf("decoding user reply: %w", err)
	}
	return r, nil
}

// ComputerOp identifies the operation carried by a COMPUTER frame.
type ComputerOp string

// The fixed COMPUTER vocabulary, both directions, per spec §6.
const (
	OpGotAlive ComputerOp = "Got alive"
	OpShutdown ComputerOp = "shutdown"
	OpCommand  ComputerOp = "command"
	OpRestart  ComputerOp = "restart"
)

// ComputerMessage is the payload of a COMPUTER frame. Only the fields
// relevant to Op are populated; this is the same tagged-variant shape as
// UserRequest, generalized to the agent<->daemon contracts of spec §6.
type ComputerMessage struct {
	Op ComputerOp `json:"op"`

	// Populated on OpGotAlive, agent -> daemon.
	Machine   string `json:"machine,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Partition string `json:"partition,omitempty"`

	// Populated on OpCommand, daemon -> agent.
	Argv []string `json:"argv,omitempty"`

	// Populated on the agent's reply to OpCommand.
	ExitCode int    `json:"exitCode,omitempty"`
	Output   string `json:"output,omitempty"`
}

// EncodeComputerMessage marshals a ComputerMessage.
func EncodeComputerMessage(m ComputerMessage) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding computer message: %w", err)
	}
	return b, nil
}

// DecodeComputerMessage unmarshals a ComputerMessage payload.
func DecodeComputerMessage(payload []byte) (ComputerMessage, error) {
	var m ComputerMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return ComputerMessage{}, fmt.Errorf("decoding computer message: %w", err)
	}
	return m, nil
}

// EncodeTimestamp packs a monotonic-ish wall clock reading (nanoseconds
// since epoch) into the 8-byte payload used by PING_REQUEST/PING_ANSWER. The
// value is echoed back unchanged by the peer, so the encoding only needs to
// round-trip, not be portable across processes.
func EncodeTimestamp(nanos int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf
}

// DecodeTimestamp is the inverse of EncodeTimestamp.
func DecodeTimestamp(payload []byte) (int64, error) {
	if len(payload) != 8 {
		return 0, fmt.Errorf("timestamp payload is %d bytes, want 8", len(payload))
	}
	return int64(binary.BigEndian.Uint64(payload)), nil
}
