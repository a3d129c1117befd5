/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package powerio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPressAndRelease(t *testing.T) {
	sim := NewSimulated()
	board := New(sim)

	s := sim.(*simDriver)
	require.NoError(t, board.PressAndRelease(0x01, func() { s.SetSense(0x01) }))

	bits, err := board.Sample()
	require.NoError(t, err)
	require.EqualValues(t, 0x01, bits)
}

func TestOutputIsOrOfActivePresses(t *testing.T) {
	sim := NewSimulated()
	board := New(sim)

	require.NoError(t, board.PressButton(0x01))
	require.NoError(t, board.PressButton(0x02))

	s := sim.(*simDriver)
	require.EqualValues(t, 0x03, s.outBits)

	require.NoError(t, board.ReleaseButton(0x01))
	require.EqualValues(t, 0x02, s.outBits)
}

func TestSerializedAccess(t *testing.T) {
	sim := NewSimulated()
	board := New(sim)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = board.PressAndRelease(0x01, func() {})
			_, _ = board.Sample()
		}(i)
	}
	wg.Wait()

	bits, err := board.Sample()
	require.NoError(t, err)
	require.EqualValues(t, 0, bits&^0x01)
}
