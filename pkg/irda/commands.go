// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

// Transaction builder functions create Frame structs ready for encoding.
// These are convenience wrappers around NewFrame that lay transaction
// payloads out the way the peripheral consumes them.

// NewKeyWrite creates a projector-mode write transaction.
// The payload is the mode selector, the key count, then one byte per key;
// the peripheral emits one NEC frame per mapped key on the next scheduler
// cycle. Queueing more than MaxKeys keys wraps inside the peripheral's
// register bank and is almost certainly not what the caller wants.
func NewKeyWrite(address uint8, keys ...byte) *Frame {
	payload := make([]byte, 0, 2+len(keys))
	payload = append(payload, ModeByteProjector, byte(len(keys)))
	payload = append(payload, keys...)
	return NewFrame(address, DirWrite, payload, 0)
}

// NewRawWrite creates a raw-mode write transaction.
// Each 16-bit duration word is sent big-endian; the peripheral replays the
// words as one timed burst on the next scheduler cycle.
func NewRawWrite(address uint8, words []uint16) *Frame {
	payload := make([]byte, 0, 1+2*len(words))
	payload = append(payload, ModeByteRaw)
	for _, w := range words {
		payload = append(payload, byte(w>>8), byte(w&0xFF))
	}
	return NewFrame(address, DirWrite, payload, 0)
}

// NewModeProbe creates a mode-only write transaction (no payload bytes
// after the selector). It sets the peripheral's command mode and rewinds
// its cursor without storing anything; register contents are untouched.
func NewModeProbe(address uint8, modeByte byte) *Frame {
	return NewFrame(address, DirWrite, []byte{modeByte}, 0)
}

// NewReadRequest creates a read transaction request.
// The peripheral answers with an echo frame holding the active register
// bank from its cursor to the end of the bank, one byte per slot.
func NewReadRequest(address uint8) *Frame {
	return NewFrame(address, DirRead, nil, 0)
}

// NewEcho creates the peripheral's response to a read request.
func NewEcho(address uint8, registers []byte) *Frame {
	return NewFrame(address, DirEcho, registers, 0)
}
