/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

//go:build windows
// +build windows

package main

import "os/exec"

type windowsPlatform struct{}

func newPlatform() platform { return windowsPlatform{} }

func (windowsPlatform) name() string { return "win32" }

func (windowsPlatform) scheduleShutdown() error {
	return exec.Command("shutdown", "/s", "/t", "60").Run()
}

func (windowsPlatform) reboot() error {
	return exec.Command("shutdown", "/r", "/t", "1").Run()
}
