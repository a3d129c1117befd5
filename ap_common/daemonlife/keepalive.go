/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package daemonlife

// The exact keepalive timing named in §4.F: 6s idle, 1s interval between
// probes, 4 probes before the kernel gives up on the connection -- applied
// by tuneKeepalive (keepalive_linux.go / keepalive_other.go).
const (
	keepaliveIdleSecs     = 6
	keepaliveIntervalSecs = 1
	keepaliveProbeCount   = 4
)
