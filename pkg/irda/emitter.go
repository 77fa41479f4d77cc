// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

// Emitter drives the peripheral's two infrared output channels. Channel 1
// carries NEC command codes looked up from the key table; channel 2
// replays raw timed bursts at the fixed raw carrier. Implementations own
// the exclusive hardware behind each channel.
type Emitter interface {
	EmitNEC(code uint32) error
	EmitRaw(words []uint16) error
}

// Recorder is an Emitter that captures emissions in memory. Tests assert
// against it and the bridge's trace mode prints from it.
type Recorder struct {
	NECCodes []uint32
	Bursts   [][]uint16
}

// EmitNEC records a channel 1 emission
func (r *Recorder) EmitNEC(code uint32) error {
	r.NECCodes = append(r.NECCodes, code)
	return nil
}

// EmitRaw records a channel 2 emission
func (r *Recorder) EmitRaw(words []uint16) error {
	burst := make([]uint16, len(words))
	copy(burst, words)
	r.Bursts = append(r.Bursts, burst)
	return nil
}

// Reset discards all recorded emissions
func (r *Recorder) Reset() {
	r.NECCodes = r.NECCodes[:0]
	r.Bursts = r.Bursts[:0]
}
