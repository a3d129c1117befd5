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

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWritePortFileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powerd.port")

	require.NoError(t, WritePortFile(path, 4242))

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "4242", string(data))
}

func TestWritePortFileRefusesSecondInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powerd.port")

	require.NoError(t, WritePortFile(path, 1))
	require.Error(t, WritePortFile(path, 2))
}

func TestWritePortFileEmptyPathIsNoop(t *testing.T) {
	require.NoError(t, WritePortFile("", 1))
}

func TestRemovePortFileIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powerd.port")
	require.NoError(t, WritePortFile(path, 1))

	RemovePortFile(path)
	RemovePortFile(path) // second call on an already-removed file must not panic

	require.NoError(t, WritePortFile(path, 2))
}
