/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// maxPayload bounds how much memory a single frame can force us to allocate.
// The wire format itself permits up to 2^32-1 bytes; this is a sanity check
// against a corrupt or hostile length field, not a protocol limit.
const maxPayload = 64 << 20

// Frame is a single message read from, or to be written to, the wire: a
// 4-byte big-endian type, a 4-byte big-endian length, and that many bytes of
// opaque payload.
type Frame struct {
	Type    Type
	Payload []byte
}

// ErrClosed is returned by ReadFrame when the peer closed the connection cleanly
// between frames. It is the only non-fatal EOF point in the codec; any EOF
// encountered while a frame's header or body is already partially read is
// reported as a wrapped io.ErrUnexpectedEOF instead.
var ErrClosed = io.EOF

// Reader reads Frames off an underlying byte stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for framed reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame blocks until a complete frame has arrived, the peer closes, or an
// error occurs. A clean close before any bytes of the next frame arrive is
// reported as ErrClosed; anything else is a wrapped error and the connection
// must be torn down.
func (rd *Reader) ReadFrame() (Frame, error) {
	var header [8]byte

	if _, err := io.ReadFull(rd.r, header[:4]); err != nil {
		if err == io.EOF {
			return Frame{}, ErrClosed
		}
		return Frame{}, fmt.Errorf("reading frame type: %w", err)
	}
	if _, err := io.ReadFull(rd.r, header[4:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, fmt.Errorf("reading frame length: %w", err)
	}

	typ := Type(binary.BigEndian.Uint32(header[0:4]))
	length := binary.BigEndian.Uint32(header[4:8])
	if length > maxPayload {
		return Frame{}, fmt.Errorf("frame claims %d bytes, exceeds %d byte limit",
			length, maxPayload)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(rd.r, payload); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, fmt.Errorf("reading %d byte payload: %w", length, err)
		}
	}

	return Frame{Type: typ, Payload: payload}, nil
}

// Writer writes Frames to an underlying byte stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for framed writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes a single frame. Each call issues one underlying Write of
// the fully assembled header+payload, so frames from concurrent callers
// sharing a Writer can still interleave; callers that need atomicity across
// concurrent writers must serialize their own calls (see ap_common/conn's
// mailbox, which is how the connection handler enforces this).
func (wr *Writer) WriteFrame(f Frame) error {
	if len(f.Payload) > maxPayload {
		return fmt.Errorf("refusing to write %d byte payload, exceeds %d byte limit",
			len(f.Payload), maxPayload)
	}

	buf := make([]byte, 8+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.Type))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(f.Payload)))
	copy(buf[8:], f.Payload)

	if _, err := wr.w.Write(buf); err != nil {
		return fmt.Errorf("writing %s frame: %w", f.Type, err)
	}
	return nil
}
