// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

// File is the peripheral's register store: two banks of 16-bit slots, the
// command mode selecting between them, and a single cursor shared by the
// write and read paths. The cursor is not reset between a write transaction
// and a following read; hosts that interleave writes and reads must track
// it themselves.
type File struct {
	command [CommandBufferSize]uint16
	raw     [RawBufferSize]uint16
	cursor  int
	mode    Mode
}

// NewFile creates a register file with both banks zeroed and no mode set
func NewFile() *File {
	return &File{}
}

// Mode returns the active command mode
func (f *File) Mode() Mode {
	return f.mode
}

// SetMode sets the active command mode
func (f *File) SetMode(m Mode) {
	f.mode = m
}

// Cursor returns the current cursor position.
// The cursor may sit one past the last slot after a bank-filling write; the
// next store wraps it through slot 0.
func (f *File) Cursor() int {
	return f.cursor
}

// Rewind moves the cursor back to slot 0.
// Every write transaction's mode selector byte does this so the key count
// lands in slot 0.
func (f *File) Rewind() {
	f.cursor = 0
}

// bank returns the register bank a mode addresses. With no mode set the
// command bank is the active bank.
func (f *File) bank(m Mode) []uint16 {
	if m == ModeRaw {
		return f.raw[:]
	}
	return f.command[:]
}

// WriteAt stores value at index in the bank the mode addresses. Indexes at
// or beyond the bank's capacity wrap around to slot 0; a wrapped store
// pre-clears the slot after it to the end-of-data sentinel so a
// consumption scan over freshly wrapped data still terminates. In-range
// stores never pre-clear, which keeps the count slot intact when a write
// fills the bank exactly.
func (f *File) WriteAt(m Mode, index int, value uint16) {
	bank := f.bank(m)
	if index >= 0 && index < len(bank) {
		bank[index] = value
		return
	}
	w := wrapIndex(index, len(bank))
	bank[w] = value
	bank[(w+1)%len(bank)] = 0
}

// ReadAt returns the register at index in the active bank, wrapping
// out-of-range indexes instead of rejecting them.
func (f *File) ReadAt(index int) uint16 {
	bank := f.bank(f.mode)
	return bank[wrapIndex(index, len(bank))]
}

// Store writes value at the cursor in the active bank and advances the
// cursor. A store attempted at the wrap boundary lands in slot 0 and
// leaves the cursor at 1.
func (f *File) Store(value uint16) {
	bank := f.bank(f.mode)
	f.WriteAt(f.mode, f.cursor, value)
	f.cursor++
	if f.cursor > len(bank) {
		f.cursor %= len(bank)
	}
}

// Advance moves the cursor forward one slot for the next independent read
// transaction, wrapping at the bank's capacity.
func (f *File) Advance() {
	f.cursor = (f.cursor + 1) % len(f.bank(f.mode))
}

// Window returns a copy of the active bank from the cursor through the end
// of its capacity. This is the read-service view: it never wraps
// mid-response, so a cursor at the boundary yields an empty window.
func (f *File) Window() []uint16 {
	bank := f.bank(f.mode)
	if f.cursor >= len(bank) {
		return nil
	}
	out := make([]uint16, len(bank)-f.cursor)
	copy(out, bank[f.cursor:])
	return out
}

// Clear zeroes both banks and clears the command mode. The scheduler runs
// this at the end of every dispatch cycle; the cursor is left alone since
// the next write transaction rewinds it anyway.
func (f *File) Clear() {
	for i := range f.command {
		f.command[i] = 0
	}
	for i := range f.raw {
		f.raw[i] = 0
	}
	f.mode = ModeNone
}

// wrapIndex maps any index into [0, size)
func wrapIndex(index, size int) int {
	w := index % size
	if w < 0 {
		w += size
	}
	return w
}
