// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import "fmt"

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	direction := FormatDirection(f.Direction())

	result := fmt.Sprintf("[%s] %s addr=0x%02X len=%d\n", timestamp, direction, f.Address(), f.Length())
	result += FormatPayload(f.Direction(), f.Payload())

	return result
}

// FormatDirection returns the human-readable name for a frame direction
func FormatDirection(dir byte) string {
	switch dir {
	case DirWrite:
		return "WRITE"
	case DirRead:
		return "READ"
	case DirEcho:
		return "ECHO"
	default:
		return "UNKNOWN"
	}
}

// FormatPayload formats the payload based on frame direction
func FormatPayload(dir byte, payload []byte) string {
	switch dir {
	case DirRead:
		return "  (no payload)\n"

	case DirWrite:
		if len(payload) == 0 {
			return "  (empty write, device absorbs it)\n"
		}
		switch modeForByte(payload[0]) {
		case ModeProjector:
			return formatKeyPayload(payload[1:])
		case ModeRaw:
			return formatRawPayload(payload[1:])
		default:
			return fmt.Sprintf("  Mode: UNKNOWN (0x%02X), device drops the payload\n", payload[0]) +
				hexDump(payload[1:])
		}

	case DirEcho:
		if len(payload) == 0 {
			return "  (empty window)\n"
		}
		return fmt.Sprintf("  Registers: %d bytes\n", len(payload)) + hexDump(payload)
	}

	// Anything unrecognized falls back to a hex dump
	return hexDump(payload)
}

// formatKeyPayload renders a projector-mode key queue
func formatKeyPayload(data []byte) string {
	if len(data) == 0 {
		return "  Mode: PROJECTOR ('p'), nothing queued\n"
	}

	count := data[0]
	keys := data[1:]

	result := fmt.Sprintf("  Mode: PROJECTOR ('p'), Count: %d\n", count)
	for i, key := range keys {
		if name := NameForKey(key); name != "" {
			code, _ := LookupKey(key)
			result += fmt.Sprintf("    Key %d: %q %s (NEC 0x%08X)\n", i, key, name, code)
		} else {
			result += fmt.Sprintf("    Key %d: 0x%02X (unmapped, scheduler skips it)\n", i, key)
		}
	}

	return result
}

// formatRawPayload renders a raw-mode burst queue
func formatRawPayload(data []byte) string {
	if len(data) == 0 {
		return "  Mode: RAW ('r'), nothing queued\n"
	}

	words := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		words = append(words, uint16(data[i])<<8|uint16(data[i+1]))
	}

	result := fmt.Sprintf("  Mode: RAW ('r'), Words: %d, Total: %s\n", len(words), formatMicros(sumMicros(words)))
	for i, w := range words {
		phase := "mark "
		if i%2 != 0 {
			phase = "space"
		}
		result += fmt.Sprintf("    %2d: %s %s\n", i, phase, formatMicros(uint64(w)))
	}
	if len(data)%2 != 0 {
		result += fmt.Sprintf("    trailing byte 0x%02X has no pair\n", data[len(data)-1])
	}

	return result
}

// FormatPulses renders a mark/space pulse train, one pulse per line
func FormatPulses(pulses []Pulse) string {
	result := ""
	total := PulseDuration(pulses)
	for i, p := range pulses {
		if p.Space > 0 {
			result += fmt.Sprintf("  %2d: mark %s, space %s\n", i, formatMicros(uint64(p.Mark.Microseconds())), formatMicros(uint64(p.Space.Microseconds())))
		} else {
			result += fmt.Sprintf("  %2d: mark %s\n", i, formatMicros(uint64(p.Mark.Microseconds())))
		}
	}
	result += fmt.Sprintf("  total %s over %d pulses\n", formatMicros(uint64(total.Microseconds())), len(pulses))
	return result
}

// hexDump renders bytes in the classic 16-per-line layout
func hexDump(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	result := "  Payload: "
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}

// formatMicros converts microseconds to a human-readable duration
func formatMicros(us uint64) string {
	if us >= 1000 {
		return fmt.Sprintf("%.1f ms", float64(us)/1000.0)
	}
	return fmt.Sprintf("%d µs", us)
}

// sumMicros totals a burst's duration words
func sumMicros(words []uint16) uint64 {
	var total uint64
	for _, w := range words {
		total += uint64(w)
	}
	return total
}
