/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package logsink

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFileCoreWritesToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powerd.log")
	core := NewFileCore(path, 1, 1)
	log := New(core)

	log.Infof("hello from the test")
	log.Sync()

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello from the test")
}

func TestNewFileCoreEmptyPathDoesNotCreateAFile(t *testing.T) {
	core := NewFileCore("", 1, 1)
	log := New(core)
	log.Infof("to stderr")
	log.Sync()
}
