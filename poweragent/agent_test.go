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
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetpower/ap_common/wire"
)

func newTestAgent(t *testing.T) (*Agent, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewAgent("127.0.0.1:0", "bravo", "p1", zap.New(newTestCore(&buf)).Sugar()), &buf
}

func TestRunCommandReportsSuccessExitCode(t *testing.T) {
	agent, _ := newTestAgent(t)

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	go agent.runCommand(wire.NewWriter(clientSide), []string{"true"})

	serverSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := wire.NewReader(serverSide).ReadFrame()
	require.NoError(t, err)
	require.Equal(t, wire.COMPUTER, frame.Type)

	reply, err := wire.DecodeComputerMessage(frame.Payload)
	require.NoError(t, err)
	require.Equal(t, 0, reply.ExitCode)
}

func TestRunCommandReportsNonZeroExitCode(t *testing.T) {
	agent, _ := newTestAgent(t)

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	go agent.runCommand(wire.NewWriter(clientSide), []string{"false"})

	serverSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := wire.NewReader(serverSide).ReadFrame()
	require.NoError(t, err)

	reply, err := wire.DecodeComputerMessage(frame.Payload)
	require.NoError(t, err)
	require.NotEqual(t, 0, reply.ExitCode)
}

func TestRunCommandEmptyArgvIsNoop(t *testing.T) {
	agent, buf := newTestAgent(t)

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	agent.runCommand(wire.NewWriter(clientSide), nil)

	require.Contains(t, buf.String(), "empty argument vector")
}
