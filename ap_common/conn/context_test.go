/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package conn

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fleetpower/ap_common/machine"
	"fleetpower/ap_common/powerio"
)

func loadRegistry(t *testing.T, body string) *machine.Registry {
	path := filepath.Join(t.TempDir(), "machines.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
	reg, err := machine.Load(path)
	require.NoError(t, err)
	return reg
}

func TestNewStatesStartsPoweredMachinesInStarting(t *testing.T) {
	reg := loadRegistry(t, `[
		{"canonicalName":"bravo","powerBitMask":1,"operatingSystems":[]},
		{"canonicalName":"charlie","powerBitMask":2,"operatingSystems":[]},
		{"canonicalName":"delta","powerBitMask":0,"operatingSystems":[]}
	]`)

	driver := powerio.NewSimulated()
	sim, ok := powerio.AsSimulated(driver)
	require.True(t, ok)
	sim.SetSense(1) // only bravo's bit is asserted

	board := powerio.New(driver)
	states, err := NewStates(reg, board)
	require.NoError(t, err)

	require.Equal(t, machine.Starting, states["bravo"].Status)
	require.Equal(t, machine.Off, states["charlie"].Status)
	require.Equal(t, machine.Off, states["delta"].Status)
}

func TestContextLookupResolvesAliases(t *testing.T) {
	reg := loadRegistry(t, `[
		{"canonicalName":"bravo","aliases":["b"],"powerBitMask":1,"operatingSystems":[]}
	]`)
	board := powerio.New(powerio.NewSimulated())
	states, err := NewStates(reg, board)
	require.NoError(t, err)

	ctx := &Context{Registry: reg, States: states}

	st, ok := ctx.Lookup("b")
	require.True(t, ok)
	require.Equal(t, "bravo", st.Machine.CanonicalName)

	_, ok = ctx.Lookup("nope")
	require.False(t, ok)
}
