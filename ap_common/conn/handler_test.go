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
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetpower/ap_common/logsink"
	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/powerio"
	"fleetpower/ap_common/wire"
)

func newTestContext(t *testing.T) (*Context, *machine.Registry) {
	reg := loadRegistry(t, `[
		{"canonicalName":"bravo","powerBitMask":1,
		 "operatingSystems":[{"name":"linux","partitionIdentifier":"p1"}]}
	]`)
	board := powerio.New(powerio.NewSimulated())
	states, err := NewStates(reg, board)
	require.NoError(t, err)

	return &Context{
		Registry:        reg,
		States:          states,
		Board:           board,
		Logger:          zap.NewNop().Sugar(),
		ShutdownTee:     logsink.NewTeeSink(),
		RequestShutdown: func(bool) {},
	}, reg
}

// runHandler dials raw through New/Run in a goroutine and returns the
// operator-side end of the pipe plus a func to wait for Run to return.
func runHandler(ctx *Context) (net.Conn, func()) {
	clientSide, serverSide := net.Pipe()
	h := New(ctx, serverSide)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	return clientSide, func() { <-done }
}

func sendUser(t *testing.T, conn net.Conn, verb string, args []string) {
	payload, err := wire.EncodeUserRequest(wire.UserRequest{Verb: verb, Args: args})
	require.NoError(t, err)
	require.NoError(t, wire.NewWriter(conn).WriteFrame(wire.Frame{Type: wire.USER, Payload: payload}))
}

func readOneFrame(t *testing.T, conn net.Conn) wire.Frame {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	f, err := wire.NewReader(conn).ReadFrame()
	require.NoError(t, err)
	return f
}

func TestHandlerStatusMachineReadable(t *testing.T) {
	ctx, _ := newTestContext(t)
	clientSide, wait := runHandler(ctx)
	defer func() {
		clientSide.Close()
		wait()
	}()

	sendUser(t, clientSide, "status", []string{"--machine-readable", "bravo"})

	f := readOneFrame(t, clientSide)
	require.Equal(t, wire.USER, f.Type)
	reply, err := wire.DecodeUserReply(f.Payload)
	require.NoError(t, err)
	require.Equal(t, "bravo", reply.Machine)
	require.Equal(t, "OFF", reply.State) // bravo's sense bit was never asserted
}

func TestHandlerStatusUnknownMachineLogsError(t *testing.T) {
	ctx, _ := newTestContext(t)
	clientSide, wait := runHandler(ctx)
	defer func() {
		clientSide.Close()
		wait()
	}()

	sendUser(t, clientSide, "status", []string{"--machine-readable", "nope"})

	f := readOneFrame(t, clientSide)
	require.Equal(t, wire.LOG, f.Type)
}

func TestHandlerUnknownVerbLogsError(t *testing.T) {
	ctx, _ := newTestContext(t)
	clientSide, wait := runHandler(ctx)
	defer func() {
		clientSide.Close()
		wait()
	}()

	sendUser(t, clientSide, "bogus", nil)

	f := readOneFrame(t, clientSide)
	require.Equal(t, wire.LOG, f.Type)
}

func TestHandlerDaemonStopRequestsShutdownAndBecomesShutdownLog(t *testing.T) {
	ctx, _ := newTestContext(t)
	requested := make(chan bool, 1)
	ctx.RequestShutdown = func(restart bool) { requested <- restart }

	clientSide, wait := runHandler(ctx)
	defer func() {
		clientSide.Close()
		wait()
	}()

	sendUser(t, clientSide, "daemon", []string{"stop"})

	select {
	case restart := <-requested:
		require.False(t, restart)
	case <-time.After(2 * time.Second):
		t.Fatal("RequestShutdown was never called")
	}

	f := readOneFrame(t, clientSide)
	require.Equal(t, wire.LOG, f.Type)
}

func TestHandlerAgentHandshakeAttachesMachine(t *testing.T) {
	ctx, _ := newTestContext(t)
	clientSide, wait := runHandler(ctx)
	defer func() {
		clientSide.Close()
		wait()
	}()

	hello, err := wire.EncodeComputerMessage(wire.ComputerMessage{
		Op: wire.OpGotAlive, Machine: "bravo", Platform: "linux", Partition: "p1",
	})
	require.NoError(t, err)
	require.NoError(t, wire.NewWriter(clientSide).WriteFrame(wire.Frame{Type: wire.COMPUTER, Payload: hello}))

	require.Eventually(t, func() bool {
		st := ctx.States["bravo"]
		st.Lock()
		defer st.Unlock()
		return st.Status == machine.On && st.Attached()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerClosesOnPeerDisconnect(t *testing.T) {
	ctx, _ := newTestContext(t)
	clientSide, wait := runHandler(ctx)

	clientSide.Close()
	wait() // must return promptly once the peer goes away
}

func TestHandleReadErrorLevelsByCause(t *testing.T) {
	ctx, _ := newTestContext(t)
	h := New(ctx, &discardConn{})

	require.NotPanics(t, func() { h.handleReadError(wire.ErrClosed) })
	require.NotPanics(t, func() { h.handleReadError(syscall.ECONNRESET) })
	require.NotPanics(t, func() { h.handleReadError(errors.New("boom")) })
}

// discardConn is just enough of a net.Conn to construct a Handler: New only
// calls RemoteAddr before any read/write happens.
type discardConn struct{ net.Conn }

func (discardConn) RemoteAddr() net.Addr { return dummyAddr{} }

type dummyAddr struct{}

func (dummyAddr) Network() string { return "tcp" }
func (dummyAddr) String() string  { return "test-peer" }
