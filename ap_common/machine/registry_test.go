/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package machine

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRegistryFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "machines.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadResolvesNamesAndAliases(t *testing.T) {
	path := writeRegistryFile(t, `[
		{"canonicalName":"bravo","aliases":["b","bee"],"powerBitMask":1,
		 "operatingSystems":[{"name":"linux","partitionIdentifier":"p1"}]}
	]`)

	reg, err := Load(path)
	require.NoError(t, err)

	m, ok := reg.Lookup("bravo")
	require.True(t, ok)
	require.Equal(t, "bravo", m.CanonicalName)

	m2, ok := reg.Lookup("bee")
	require.True(t, ok)
	require.Same(t, m, m2)

	_, ok = reg.Lookup("nope")
	require.False(t, ok)

	require.Len(t, reg.All(), 1)
}

func TestLoadRejectsDuplicateName(t *testing.T) {
	path := writeRegistryFile(t, `[
		{"canonicalName":"bravo","powerBitMask":1,"operatingSystems":[]},
		{"canonicalName":"charlie","aliases":["bravo"],"powerBitMask":2,"operatingSystems":[]}
	]`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDuplicatePowerBit(t *testing.T) {
	path := writeRegistryFile(t, `[
		{"canonicalName":"bravo","powerBitMask":1,"operatingSystems":[]},
		{"canonicalName":"charlie","powerBitMask":1,"operatingSystems":[]}
	]`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAllowsSharedZeroPowerBit(t *testing.T) {
	// powerBitMask 0 means "unmonitored"; invariant 4 says such machines
	// never collide on the sense bus, so multiple of them is fine.
	path := writeRegistryFile(t, `[
		{"canonicalName":"bravo","powerBitMask":0,"operatingSystems":[]},
		{"canonicalName":"charlie","powerBitMask":0,"operatingSystems":[]}
	]`)

	reg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reg.All(), 2)
}

func TestLoadRejectsMissingCanonicalName(t *testing.T) {
	path := writeRegistryFile(t, `[{"powerBitMask":1,"operatingSystems":[]}]`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeRegistryFile(t, `not json`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestMachineMonitorsPower(t *testing.T) {
	m := &Machine{PowerBitMask: 0}
	require.False(t, m.MonitorsPower())
	m.PowerBitMask = 4
	require.True(t, m.MonitorsPower())
}

func TestMachineOSByNameAndAlias(t *testing.T) {
	m := &Machine{
		OperatingSystems: []OperatingSystem{
			{Name: "linux", Aliases: []string{"lnx"}, PartitionIdentifier: "p1"},
			{Name: "windows", PartitionIdentifier: "p2"},
		},
	}

	os, ok := m.OSByName("linux")
	require.True(t, ok)
	require.Equal(t, "p1", os.PartitionIdentifier)

	os, ok = m.OSByName("lnx")
	require.True(t, ok)
	require.Equal(t, "linux", os.Name)

	_, ok = m.OSByName("bsd")
	require.False(t, ok)
}

func TestMachineOSByPartition(t *testing.T) {
	m := &Machine{
		OperatingSystems: []OperatingSystem{
			{Name: "linux", PartitionIdentifier: "p1"},
		},
	}

	os, ok := m.OSByPartition("p1")
	require.True(t, ok)
	require.Equal(t, "linux", os.Name)

	_, ok = m.OSByPartition("p9")
	require.False(t, ok)
}

func TestMachineBootManagerOS(t *testing.T) {
	m := &Machine{
		BootManagerName: "pxe",
		OperatingSystems: []OperatingSystem{
			{Name: "pxe", PartitionIdentifier: "p0"},
		},
	}

	os, ok := m.BootManagerOS()
	require.True(t, ok)
	require.Equal(t, "pxe", os.Name)

	m2 := &Machine{}
	_, ok = m2.BootManagerOS()
	require.False(t, ok)
}
