// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

// Package irda implements the Artik infrared register-file protocol.
//
// The protocol drives a small bus peripheral that turns register writes into
// infrared transmissions: projector-mode writes queue remote-control key
// presses that are emitted as NEC frames, raw-mode writes queue 16-bit
// mark/space duration words that are replayed as one timed burst. This
// package provides the peripheral core (register store, bus transaction
// servicing, transmission scheduler), the frame tunnel used to carry bus
// transactions over serial or WebSocket links, and the validation and
// formatting helpers the monitoring tools build on.
package irda

// Tunnel framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Frame size limits
const (
	// MaxPayloadSize is one mode byte plus a full raw bank of byte pairs.
	MaxPayloadSize = 1 + 2*RawBufferSize
	// MaxFrameSize covers length, address, direction, payload and CRC
	// before byte stuffing.
	MaxFrameSize = MaxPayloadSize + 5
)

// CRC-16-CCITT parameters
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// DefaultAddress is the bus address the peripheral answers on unless
// provisioned otherwise.
const DefaultAddress = 0x05

// Frame directions
const (
	DirWrite = 'W' // host → peripheral write transaction
	DirRead  = 'R' // host → peripheral read request
	DirEcho  = 'E' // peripheral → host register echo
)

// Register bank capacities, in 16-bit slots
const (
	// CommandBufferSize holds the pending key count in slot 0 and up to
	// MaxKeys key codes in the slots after it.
	CommandBufferSize = 33
	// RawBufferSize holds mark/space duration words for one burst.
	RawBufferSize = 64
)

// MaxKeys is the most key presses one projector-mode write can queue.
const MaxKeys = CommandBufferSize - 1

// Command mode selector bytes, always the first byte of a write transaction
const (
	ModeByteProjector = 'p'
	ModeByteRaw       = 'r'
)

// Decoder state machine positions
const (
	stateIdle = iota
	stateLength
	stateAddress
	stateDirection
	statePayload
	stateCRC1
	stateCRC2
)

// Mode selects which register bank writes and scheduler cycles operate on
type Mode int

// Command modes
const (
	ModeNone Mode = iota
	ModeProjector
	ModeRaw
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeProjector:
		return "PROJECTOR"
	case ModeRaw:
		return "RAW"
	default:
		return "UNKNOWN"
	}
}

// modeForByte maps a transaction's selector byte to a command mode.
// Unknown selectors clear the mode; the peripheral never rejects.
func modeForByte(b byte) Mode {
	switch b {
	case ModeByteProjector:
		return ModeProjector
	case ModeByteRaw:
		return ModeRaw
	default:
		return ModeNone
	}
}

// Projector key codes, as sent by the host in projector-mode payloads
const (
	KeyPower      = 'P'
	KeyMenu       = 'M'
	KeyInput      = 'I'
	KeyOK         = 'O'
	KeyEsc        = 'E'
	KeyMute       = 'm'
	KeyUp         = 'U'
	KeyLeft       = 'L'
	KeyRight      = 'R'
	KeyDown       = 'D'
	KeyVolumeUp   = 'V'
	KeyVolumeDown = 'v'
)

// NEC codes for the projector remote, MSB-first as transmitted
const (
	CodePower      = 0x00FD40BF
	CodeMenu       = 0x00FD20DF
	CodeInput      = 0x00FD609F
	CodeOK         = 0x00FD906F
	CodeEsc        = 0x00FD8877
	CodeMute       = 0x00FD00FF
	CodeUp         = 0x00FDA05F
	CodeLeft       = 0x00FD10EF
	CodeRight      = 0x00FD50AF
	CodeDown       = 0x00FDB04F
	CodeVolumeUp   = 0x00FD48B7
	CodeVolumeDown = 0x00FD6897
)
