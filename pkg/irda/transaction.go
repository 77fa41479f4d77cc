// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

// Receive services one bus write transaction. The first byte is always
// consumed as the command mode selector; the rest is payload for the bank
// that mode addresses. Nothing here can fail: malformed transactions are
// absorbed and show up only in the counters and in later behavior.
func (p *Peripheral) Receive(payload []byte) {
	if len(payload) == 0 {
		p.counters.EmptyWrites++
		return
	}
	p.counters.WriteTransactions++

	mode := modeForByte(payload[0])
	p.file.SetMode(mode)
	if mode == ModeNone {
		// Unknown selector: mode cleared, payload dropped, cursor kept
		p.counters.UnknownModes++
		return
	}
	p.file.Rewind()

	data := payload[1:]
	if len(data) == 0 {
		p.counters.ModeProbes++
		return
	}

	switch mode {
	case ModeProjector:
		for _, b := range data {
			p.file.Store(uint16(b))
		}
	case ModeRaw:
		for i := 0; i+1 < len(data); i += 2 {
			p.file.Store(uint16(data[i])<<8 | uint16(data[i+1]))
		}
		if len(data)%2 != 0 {
			if p.cfg.PadOddPayload {
				p.file.Store(uint16(data[len(data)-1]) << 8)
			} else {
				p.counters.DroppedBytes++
			}
		}
	}
}

// Service services one bus read transaction: the active bank from the
// cursor through the end of its capacity, each slot truncated to its low
// byte. Afterwards the cursor advances by one for the next independent
// read. The window never wraps mid-response.
func (p *Peripheral) Service() []byte {
	p.counters.ReadTransactions++

	window := p.file.Window()
	out := make([]byte, len(window))
	for i, v := range window {
		out[i] = byte(v & 0xFF)
	}
	p.file.Advance()
	return out
}
