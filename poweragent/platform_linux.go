/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

//go:build linux
// +build linux

package main

import "os/exec"

type linuxPlatform struct{}

func newPlatform() platform { return linuxPlatform{} }

func (linuxPlatform) name() string { return "linux" }

func (linuxPlatform) scheduleShutdown() error {
	return exec.Command("sudo", "shutdown", "-h", "+1").Run()
}

func (linuxPlatform) reboot() error {
	return exec.Command("sudo", "reboot").Run()
}
