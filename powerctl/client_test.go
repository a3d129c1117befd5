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
	"io/ioutil"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveAddrPrefersExplicitAddr(t *testing.T) {
	addr, err := resolveAddr("10.0.0.1:9999", "/does/not/exist")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:9999", addr)
}

func TestResolveAddrReadsPortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powerd.port")
	require.NoError(t, ioutil.WriteFile(path, []byte("55443"), 0644))

	addr, err := resolveAddr("", path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:55443", addr)
}

func TestResolveAddrMissingPortFile(t *testing.T) {
	_, err := resolveAddr("", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestResolveAddrMalformedPortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powerd.port")
	require.NoError(t, ioutil.WriteFile(path, []byte("not-a-port"), 0644))

	_, err := resolveAddr("", path)
	require.Error(t, err)
}

func TestRunCommandDaemonStopTreatsUnreachableAsSuccess(t *testing.T) {
	// Nothing listens on this port, so the dial itself fails.
	err := runCommand("127.0.0.1:1", "daemon", []string{"stop"})
	require.NoError(t, err)
}

func TestRunCommandOtherVerbsPropagateDialFailure(t *testing.T) {
	err := runCommand("127.0.0.1:1", "status", nil)
	require.Error(t, err)
}

func TestIsTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Millisecond)))
	buf := make([]byte, 1)
	_, readErr := conn.Read(buf)
	require.Error(t, readErr)
	require.True(t, isTimeout(readErr))

	require.False(t, isTimeout(errors.New("not a net error")))
}
