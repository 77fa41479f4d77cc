// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import "time"

// Carrier configuration for the two transmission channels
const (
	// NECCarrierFrequency modulates channel 1 (key command) emissions.
	NECCarrierFrequency = 38000 // Hz
	// RawCarrierFrequency modulates channel 2 (raw burst) emissions.
	RawCarrierFrequency = 36000 // Hz
	// CarrierDutyPercent is the mark duty cycle for both channels.
	CarrierDutyPercent = 33
)

// NEC frame timing
const (
	necLeadMark  = 9000 * time.Microsecond
	necLeadSpace = 4500 * time.Microsecond
	necBitMark   = 562 * time.Microsecond
	necOneSpace  = 1686 * time.Microsecond
	necZeroSpace = 562 * time.Microsecond
	necTrailMark = 562 * time.Microsecond
)

// Pulse is one step of an infrared waveform: carrier on for Mark, then off
// for Space.
type Pulse struct {
	Mark  time.Duration
	Space time.Duration
}

// NECPulses renders a 32-bit NEC code into its pulse train: lead mark and
// space, 32 data bits most significant first, trailing mark.
func NECPulses(code uint32) []Pulse {
	return AppendNEC(make([]Pulse, 0, 34), code)
}

// AppendNEC appends the NEC pulse train for code to dst and returns the
// extended slice.
func AppendNEC(dst []Pulse, code uint32) []Pulse {
	dst = append(dst, Pulse{Mark: necLeadMark, Space: necLeadSpace})
	for bit := 31; bit >= 0; bit-- {
		if code&(1<<uint(bit)) != 0 {
			dst = append(dst, Pulse{Mark: necBitMark, Space: necOneSpace})
		} else {
			dst = append(dst, Pulse{Mark: necBitMark, Space: necZeroSpace})
		}
	}
	dst = append(dst, Pulse{Mark: necTrailMark})
	return dst
}

// BurstPulses renders raw duration words into a pulse train. Words
// alternate mark/space in microseconds; an odd final word becomes a mark
// with no trailing space.
func BurstPulses(words []uint16) []Pulse {
	pulses := make([]Pulse, 0, (len(words)+1)/2)
	for i := 0; i < len(words); i += 2 {
		p := Pulse{Mark: time.Duration(words[i]) * time.Microsecond}
		if i+1 < len(words) {
			p.Space = time.Duration(words[i+1]) * time.Microsecond
		}
		pulses = append(pulses, p)
	}
	return pulses
}

// PulseDuration returns the total transmission time of a pulse train
func PulseDuration(pulses []Pulse) time.Duration {
	var total time.Duration
	for _, p := range pulses {
		total += p.Mark + p.Space
	}
	return total
}

// DriverData converts a key table code (bits in transmission order, most
// significant first) to the LSB-first layout NEC sender hardware consumes:
// {addrLow, addrHigh, cmd, ^cmd} from low byte to high. Both layouts
// describe the same waveform bit for bit.
func DriverData(code uint32) uint32 {
	return uint32(reverseByte(byte(code)))<<24 |
		uint32(reverseByte(byte(code>>8)))<<16 |
		uint32(reverseByte(byte(code>>16)))<<8 |
		uint32(reverseByte(byte(code>>24)))
}

func reverseByte(b byte) byte {
	b = b>>4 | b<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}
