// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import "time"

// Tick runs one transmission scheduler cycle: consume whatever the active
// mode has queued, emit it, then zero both banks and clear the mode so the
// next cycle starts quiet. Emitter failures are counted and absorbed; a
// tick never fails.
func (p *Peripheral) Tick() {
	p.counters.Ticks++

	switch p.file.Mode() {
	case ModeProjector:
		p.dispatchKeys()
	case ModeRaw:
		p.dispatchBurst()
	}

	p.file.Clear()
}

// dispatchKeys emits one NEC frame per queued key on channel 1. Slot 0
// holds the count; a zero slot ends the scan early (end-of-data sentinel).
func (p *Peripheral) dispatchKeys() {
	count := int(p.file.ReadAt(0))
	if count > MaxKeys {
		// Scan at most one pass over the bank whatever the count slot says
		count = MaxKeys
	}

	emitted := 0
	for i := 1; i <= count; i++ {
		key := p.file.ReadAt(i)
		if key == 0 {
			break
		}
		code, ok := LookupKey(byte(key & 0xFF))
		if !ok {
			p.counters.KeysUnmapped++
			continue
		}
		if emitted > 0 && p.cfg.CommandGap > 0 {
			time.Sleep(p.cfg.CommandGap)
		}
		if p.cfg.Emitter != nil {
			if err := p.cfg.Emitter.EmitNEC(code); err != nil {
				p.counters.EmitErrors++
				continue
			}
		}
		p.counters.KeysEmitted++
		emitted++
	}
}

// dispatchBurst emits the queued duration words as one timed burst on
// channel 2, scanning from slot 0 until the end-of-data sentinel.
func (p *Peripheral) dispatchBurst() {
	words := make([]uint16, 0, RawBufferSize)
	for i := 0; i < RawBufferSize; i++ {
		w := p.file.ReadAt(i)
		if w == 0 {
			break
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return
	}

	if p.cfg.Emitter != nil {
		if err := p.cfg.Emitter.EmitRaw(words); err != nil {
			p.counters.EmitErrors++
			return
		}
	}
	p.counters.BurstsEmitted++
}
