// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import (
	"fmt"
	"time"
)

// Decoder turns a tunnel byte stream back into frames, one byte at a
// time. It resynchronizes on the next START byte after any error, so a
// reader can feed it a stream it joined mid-frame.
type Decoder struct {
	state      int
	escapeNext bool
	frame      *Frame
	crcBuf     []byte // unstuffed length..payload bytes, CRC input
	rawBuffer  []byte // wire bytes since the last START, for dump output
}

// NewDecoder creates a new tunnel decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		crcBuf:    make([]byte, 0, MaxFrameSize),
		rawBuffer: make([]byte, 0, MaxFrameSize*2),
	}
}

// Reset drops any partial frame and waits for the next START byte.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.escapeNext = false
	d.frame = nil
	d.crcBuf = d.crcBuf[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the wire bytes accumulated since the last frame
// boundary.
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// accept records an unstuffed byte into the running CRC input.
func (d *Decoder) accept(b byte) {
	d.crcBuf = append(d.crcBuf, b)
}

// DecodeByte advances the state machine by one wire byte. It returns a
// frame when one completes, nil while one is in progress, and an error
// when the stream violates framing; after an error the decoder hunts
// for the next START byte.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	// Unstuff. Escaped payload bytes never carry framing values, so the
	// framing checks below look at the wire byte, not the unstuffed one.
	if b == EscByte && !d.escapeNext {
		d.escapeNext = true
		return nil, nil
	}
	wireByte := b
	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	if wireByte == StartByte {
		// A START mid-frame abandons the partial frame silently; the
		// peripheral side absorbs, the bench side resyncs.
		d.Reset()
		d.rawBuffer = append(d.rawBuffer[:0], wireByte)
		d.state = stateLength
		return nil, nil
	}

	if wireByte == EndByte {
		if d.state != stateCRC2 {
			err := fmt.Errorf("END byte arrived in state %d", d.state)
			d.Reset()
			return nil, err
		}
		frame := d.frame
		if want := CalculateCRC(d.crcBuf); frame.crc != want {
			d.Reset()
			return nil, fmt.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", want, frame.crc)
		}
		frame.timestamp = time.Now()
		d.Reset()
		return frame, nil
	}

	switch d.state {
	case stateIdle:
		// Hunting for START

	case stateLength:
		if int(b) > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.frame = &Frame{length: b, payload: make([]byte, 0, b)}
		d.accept(b)
		d.state = stateAddress

	case stateAddress:
		d.frame.address = b
		d.accept(b)
		d.state = stateDirection

	case stateDirection:
		if b != DirWrite && b != DirRead && b != DirEcho {
			d.Reset()
			return nil, fmt.Errorf("invalid direction byte: 0x%02X", b)
		}
		d.frame.direction = b
		d.accept(b)
		if d.frame.length == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}

	case statePayload:
		d.frame.payload = append(d.frame.payload, b)
		d.accept(b)
		if len(d.frame.payload) >= int(d.frame.length) {
			d.state = stateCRC1
		}

	case stateCRC1:
		d.frame.crc = uint16(b) << 8
		d.state = stateCRC2

	case stateCRC2:
		d.frame.crc |= uint16(b)
		// Next byte must be END

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}

	return nil, nil
}
