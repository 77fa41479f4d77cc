package irda

import (
	"fmt"
)

// EncodeFrame creates a complete wire-formatted tunnel frame.
// Returns the frame bytes ready for transmission, including framing and
// byte stuffing.
func EncodeFrame(address uint8, direction byte, payload []byte) ([]byte, error) {
	if direction != DirWrite && direction != DirRead && direction != DirEcho {
		return nil, fmt.Errorf("invalid direction byte: 0x%02X", direction)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	// Build the data section: length + address + direction + payload.
	// This is what gets CRC'd and byte-stuffed.
	data := make([]byte, 0, 3+len(payload)+2)
	data = append(data, uint8(len(payload)), address, direction)
	data = append(data, payload...)

	// CRC over the data section, appended big-endian
	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	// Everything between START and END travels stuffed
	stuffed := stuffBytes(data)

	frame := make([]byte, 0, len(stuffed)+2)
	frame = append(frame, StartByte)
	frame = append(frame, stuffed...)
	frame = append(frame, EndByte)

	return frame, nil
}

// Encode encodes an existing Frame back to wire format
func (f *Frame) Encode() ([]byte, error) {
	return EncodeFrame(f.address, f.direction, f.payload)
}

// MustEncodeFrame encodes a frame to wire format.
// Panics on encoding error (use EncodeFrame for error handling).
func MustEncodeFrame(f *Frame) []byte {
	data, err := f.Encode()
	if err != nil {
		panic(fmt.Sprintf("irda: encode error: %v", err))
	}
	return data
}

// DecodeFrame decodes a complete wire-formatted frame from a byte slice.
// Convenience wrapper around the Decoder for one-shot use.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}

	decoder := NewDecoder()
	for _, b := range data {
		frame, err := decoder.DecodeByte(b)
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}
	}

	return nil, fmt.Errorf("incomplete frame")
}

// stuffBytes escapes the framing values (START, END, ESC) inside the
// data section as ESC followed by the byte XOR EscXor.
func stuffBytes(data []byte) []byte {
	out := make([]byte, 0, len(data)+4)
	for _, b := range data {
		switch b {
		case StartByte, EndByte, EscByte:
			out = append(out, EscByte, b^EscXor)
		default:
			out = append(out, b)
		}
	}
	return out
}

// UnstuffBytes undoes stuffBytes. A trailing ESC with nothing after it
// is an error.
func UnstuffBytes(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != EscByte {
			out = append(out, b)
			continue
		}
		if i++; i == len(data) {
			return nil, fmt.Errorf("incomplete escape sequence at end of data")
		}
		out = append(out, data[i]^EscXor)
	}
	return out, nil
}
