// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import "time"

// Frame represents one bus transaction carried over the tunnel: a write,
// a read request, or the peripheral's register echo.
type Frame struct {
	length    uint8
	address   uint8
	direction byte
	payload   []byte
	crc       uint16
	timestamp time.Time
}

// NewFrame creates a frame with the given fields. The CRC is the value
// carried on the wire; builders that compute it themselves pass 0.
func NewFrame(address uint8, direction byte, payload []byte, crc uint16) *Frame {
	return &Frame{
		length:    uint8(len(payload)),
		address:   address,
		direction: direction,
		payload:   payload,
		crc:       crc,
		timestamp: time.Now(),
	}
}

// Length returns the frame's payload length
func (f *Frame) Length() uint8 {
	return f.length
}

// Address returns the 7-bit bus address the frame targets
func (f *Frame) Address() uint8 {
	return f.address
}

// Direction returns the frame direction (DirWrite, DirRead or DirEcho)
func (f *Frame) Direction() byte {
	return f.direction
}

// Payload returns the raw transaction bytes
func (f *Frame) Payload() []byte {
	return f.payload
}

// CRC returns the frame's CRC value
func (f *Frame) CRC() uint16 {
	return f.crc
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// IsWrite returns true for host→peripheral write transactions
func (f *Frame) IsWrite() bool {
	return f.direction == DirWrite
}

// IsRead returns true for host→peripheral read requests
func (f *Frame) IsRead() bool {
	return f.direction == DirRead
}

// IsEcho returns true for peripheral→host register echoes
func (f *Frame) IsEcho() bool {
	return f.direction == DirEcho
}

// ModeByte returns the command mode selector of a write transaction, or 0
// for frames with no payload.
func (f *Frame) ModeByte() byte {
	if len(f.payload) == 0 {
		return 0
	}
	return f.payload[0]
}

// Mode returns the command mode a write transaction selects
func (f *Frame) Mode() Mode {
	if len(f.payload) == 0 {
		return ModeNone
	}
	return modeForByte(f.payload[0])
}
