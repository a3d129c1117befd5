/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// +build linux

package daemonlife

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// tuneKeepalive applies the exact keepalive timing §4.F names (6s idle, 1s
// interval, 4 probes) via TCP_KEEPIDLE/TCP_KEEPINTVL/TCP_KEEPCNT, so a dead
// agent is surfaced at the transport layer within about 10 seconds -- on the
// same order as the ping scheduler's own timeout, per the design notes'
// platform-conditional style (ap_common/aputil, ap.mcp use the same pattern
// for Linux-only features).
func tuneKeepalive(c *net.TCPConn) error {
	if err := c.SetKeepAlive(true); err != nil {
		return err
	}

	raw, err := c.SyscallConn()
	if err != nil {
		return fmt.Errorf("obtaining raw conn for keepalive tuning: %w", err)
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepaliveIdleSecs); sockErr != nil {
			return
		}
		if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepaliveIntervalSecs); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepaliveProbeCount)
	})
	if err != nil {
		return fmt.Errorf("tuning keepalive: %w", err)
	}
	return sockErr
}
