/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// +build !linux

package daemonlife

import (
	"net"
	"time"
)

// tuneKeepalive falls back to the portable net.TCPConn keepalive knobs on
// non-Linux platforms: they only offer one period, not separate idle/
// interval settings, so this gets close to (not exactly) the §4.F timing.
func tuneKeepalive(c *net.TCPConn) error {
	if err := c.SetKeepAlive(true); err != nil {
		return err
	}
	return c.SetKeepAlivePeriod(time.Duration(keepaliveIdleSecs) * time.Second)
}
