/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package daemonlife implements §4.I: startup sequencing, the listening
// socket's accept loop, orderly shutdown and in-place restart, and the
// single-instance guard. It also mounts the observability endpoints named
// in SPEC_FULL's supplemented features.
package daemonlife

import (
	"fmt"
	"os"
	"strconv"
)

// WritePortFile exclusively creates path and writes the decimal listening
// port into it (§6 filesystem contract, §7 error kind 7). The file's mere
// existence is the single-instance guard named in §5: a second daemon
// refuses to start rather than racing the first for the listening socket.
// An empty path disables the guard entirely.
func WritePortFile(path string, port int) error {
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("refusing to start: port file %s already exists", path)
		}
		return fmt.Errorf("creating port file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(port)); err != nil {
		return fmt.Errorf("writing port file %s: %w", path, err)
	}
	return nil
}

// RemovePortFile releases the single-instance guard during cleanup. Safe to
// call with an empty path, and safe to call more than once.
func RemovePortFile(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
}
