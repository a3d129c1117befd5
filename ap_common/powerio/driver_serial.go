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
	"fmt"
	"io"

	"github.com/daedaluz/goserial"
)

// baudToCFlag maps the handful of rates this board is ever wired at onto
// the termios CFlag constants goserial expects; anything else is rejected
// at OpenSerial time rather than silently falling back to a default.
var baudToCFlag = map[int]serial.CFlag{
	9600:   serial.B9600,
	115200: serial.B115200,
}

// serialDriver drives a digital I/O board that exposes its two 8-bit ports
// (drive-output, power-sense-input) over a single serial line: write one
// byte to set the output port, read one byte to sample the input port. The
// framing is the board vendor's, not a protocol this daemon defines; only
// the two bytes-per-transaction shape is load-bearing here.
type serialDriver struct {
	port    *serial.Port
	outBits uint8
}

// OpenSerial opens the board at device (e.g. "/dev/ttyUSB0") at the given
// baud rate. The returned Driver starts with every output bit clear.
func OpenSerial(device string, baud int) (Driver, error) {
	speed, ok := baudToCFlag[baud]
	if !ok {
		return nil, fmt.Errorf("opening power I/O board %s: unsupported baud rate %d", device, baud)
	}

	port, err := serial.Open(device, serial.NewOptions())
	if err != nil {
		return nil, fmt.Errorf("opening power I/O board %s: %w", device, err)
	}

	attrs := &serial.Termios{}
	attrs.SetSpeed(speed)
	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("configuring power I/O board %s: %w", device, err)
	}

	return &serialDriver{port: port}, nil
}

// Sample reads one byte from the input port.
func (d *serialDriver) Sample() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(d.port, buf[:]); err != nil {
		return 0, fmt.Errorf("reading power-sense port: %w", err)
	}
	return buf[0], nil
}

// PressButton ORs bit into the output bitmask and writes the full mask, per
// invariant 5: the drive-output byte is always the OR of every currently
// active button-press side effect, never a single bit written in isolation.
func (d *serialDriver) PressButton(bit uint8) error {
	return d.writeOutput(d.outBits | bit)
}

// ReleaseButton clears bit from the output bitmask and writes the result.
func (d *serialDriver) ReleaseButton(bit uint8) error {
	return d.writeOutput(d.outBits &^ bit)
}

func (d *serialDriver) writeOutput(bits uint8) error {
	if _, err := d.port.Write([]byte{bits}); err != nil {
		return fmt.Errorf("writing drive-output port: %w", err)
	}
	d.outBits = bits
	return nil
}

// Close releases the underlying serial port.
func (d *serialDriver) Close() error {
	return d.port.Close()
}
