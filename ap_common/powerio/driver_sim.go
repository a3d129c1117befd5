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

import "sync"

// simDriver is an in-memory stand-in for the physical board: it has no
// timing or causal behavior of its own. Tests that want pressing a button to
// eventually make a machine appear powered (or powered off) drive the sense
// bitmask themselves via SetSense between samples.
type simDriver struct {
	mu      sync.Mutex
	sense   uint8
	outBits uint8
}

// NewSimulated returns a Driver with every sense bit initially off, suitable
// for exercising the state machine and power I/O guard without hardware.
func NewSimulated() Driver {
	return &simDriver{}
}

func (d *simDriver) Sample() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sense, nil
}

func (d *simDriver) PressButton(bit uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outBits |= bit
	return nil
}

func (d *simDriver) ReleaseButton(bit uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outBits &^= bit
	return nil
}

// SetSense forces the simulated sense bitmask, as if the machine had been
// powered on or off by some agent outside this daemon's control.
func (d *simDriver) SetSense(bits uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sense = bits
}

// AsSimulated is a type-assertion helper for tests that need SetSense.
func AsSimulated(d Driver) (*simDriver, bool) {
	s, ok := d.(*simDriver)
	return s, ok
}

// OutBits reports the simulated drive-output word, for tests outside this
// package that need to assert a button was (or was not) pressed.
func (d *simDriver) OutBits() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outBits
}
