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

// platform isolates the OS-appropriate shutdown/reboot commands named in
// §6 ("shutdown /r /t 1 vs sudo reboot") behind one small interface, with a
// build-tagged implementation per target OS -- the same style
// ap_common/aputil uses for its Linux-only features.
type platform interface {
	// name is the platformString reported in the Got-alive handshake.
	name() string
	// scheduleShutdown arranges a graceful local shutdown roughly a
	// minute out, giving in-flight work a chance to finish.
	scheduleShutdown() error
	// reboot restarts the machine now.
	reboot() error
}
