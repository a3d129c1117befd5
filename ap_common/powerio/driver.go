/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package powerio talks to the digital I/O board that senses per-machine
// power state and drives the momentary front-panel buttons (§4.D). Every
// operation on the board is serialized through a single mutex: the board
// itself has no addressing beyond "the byte currently on the wire", so two
// goroutines racing to press one button and sample another could each see
// the other's half-finished transaction.
package powerio

import (
	"io"
	"sync"

	"fleetpower/common/zaperr"
)

// Driver is the narrow contract the rest of the daemon needs from the board.
// Sample returns the current power-sense bitmask (bit N set means machine N
// is powered on, per Machine.PowerBitMask). PressButton and ReleaseButton
// drive one machine's momentary switch.
type Driver interface {
	Sample() (uint8, error)
	PressButton(bit uint8) error
	ReleaseButton(bit uint8) error
}

// Board serializes access to a Driver so that sample/press/release never
// interleave on the wire, and gives callers a single PressAndRelease helper
// for the common "press for the configured hold time" case.
type Board struct {
	mu     sync.Mutex
	driver Driver
}

// New wraps a Driver with the serialization guard.
func New(driver Driver) *Board {
	return &Board{driver: driver}
}

// Sample reads the current power-sense bitmask.
func (b *Board) Sample() (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bits, err := b.driver.Sample()
	if err != nil {
		return 0, zaperr.Errorw("sampling power-sense board", "error", err)
	}
	return bits, nil
}

// PressButton asserts machine bit's button line. Callers must pair this with
// ReleaseButton; PressAndRelease does that pairing for the common case.
func (b *Board) PressButton(bit uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.driver.PressButton(bit); err != nil {
		return zaperr.Errorw("pressing button", "bit", bit, "error", err)
	}
	return nil
}

// ReleaseButton deasserts machine bit's button line.
func (b *Board) ReleaseButton(bit uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.driver.ReleaseButton(bit); err != nil {
		return zaperr.Errorw("releasing button", "bit", bit, "error", err)
	}
	return nil
}

// PressAndRelease holds bit's button down for hold, then releases it. It
// holds the serialization lock for the full duration, so a Sample issued by
// another goroutine mid-press waits rather than reading a half-pressed
// board -- matching invariant 4.D that sample/press/release never interleave.
func (b *Board) PressAndRelease(bit uint8, hold func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.driver.PressButton(bit); err != nil {
		return zaperr.Errorw("pressing button", "bit", bit, "error", err)
	}
	hold()
	if err := b.driver.ReleaseButton(bit); err != nil {
		return zaperr.Errorw("releasing button", "bit", bit, "error", err)
	}
	return nil
}

// Close releases the underlying driver, if it holds a real resource (the
// serial port; the simulated backend has none). Part of §4.I's cleanup
// sequence ("close listener, close hardware, remove port-file").
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if closer, ok := b.driver.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
