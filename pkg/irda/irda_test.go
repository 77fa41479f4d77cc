// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ============================================================
// Test Helpers
// ============================================================

// feedStuffed feeds one logical byte to the decoder, escaping it first if
// it collides with a framing value.
func feedStuffed(d *Decoder, b byte) (*Frame, error) {
	if b == StartByte || b == EndByte || b == EscByte {
		d.DecodeByte(EscByte)
		return d.DecodeByte(b ^ EscXor)
	}
	return d.DecodeByte(b)
}

// feedFrame hand-feeds a complete frame through the decoder, computing the
// CRC the same way the encoder does.
func feedFrame(d *Decoder, address uint8, direction byte, payload []byte) (*Frame, error) {
	crcData := []byte{uint8(len(payload)), address, direction}
	crcData = append(crcData, payload...)
	crc := CalculateCRC(crcData)

	d.DecodeByte(StartByte)
	for _, b := range crcData {
		if _, err := feedStuffed(d, b); err != nil {
			return nil, err
		}
	}
	if _, err := feedStuffed(d, byte(crc>>8)); err != nil {
		return nil, err
	}
	if _, err := feedStuffed(d, byte(crc)); err != nil {
		return nil, err
	}
	return d.DecodeByte(EndByte)
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC_Empty(t *testing.T) {
	crc := CalculateCRC([]byte{})
	if crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%04X", crc)
	}
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0x29B1, // Published check value for this polynomial
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CalculateCRC(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", tt.expected, crc)
			}
		})
	}
}

func TestCalculateCRC_Deterministic(t *testing.T) {
	data := []byte{ModeByteProjector, 0x02, KeyPower, KeyMute}
	crc1 := CalculateCRC(data)
	crc2 := CalculateCRC(data)
	if crc1 != crc2 {
		t.Errorf("CRC should be deterministic: 0x%04X != 0x%04X", crc1, crc2)
	}
}

// ============================================================
// Mode Tests
// ============================================================

func TestModeString(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected string
	}{
		{ModeNone, "NONE"},
		{ModeProjector, "PROJECTOR"},
		{ModeRaw, "RAW"},
		{Mode(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.expected {
				t.Errorf("String() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestModeForByte(t *testing.T) {
	if modeForByte(ModeByteProjector) != ModeProjector {
		t.Error("'p' should select projector mode")
	}
	if modeForByte(ModeByteRaw) != ModeRaw {
		t.Error("'r' should select raw mode")
	}
	if modeForByte('P') != ModeNone {
		t.Error("selector bytes are case sensitive, 'P' should clear the mode")
	}
	if modeForByte(0x00) != ModeNone {
		t.Error("unknown selector should clear the mode")
	}
}

// ============================================================
// Frame Tests
// ============================================================

func TestNewFrame(t *testing.T) {
	payload := []byte{ModeByteProjector, 1, KeyPower}
	f := NewFrame(DefaultAddress, DirWrite, payload, 0x1234)

	if f.Length() != uint8(len(payload)) {
		t.Errorf("Length mismatch: expected %d, got %d", len(payload), f.Length())
	}
	if f.Address() != DefaultAddress {
		t.Errorf("Address mismatch: expected 0x%02X, got 0x%02X", DefaultAddress, f.Address())
	}
	if f.Direction() != DirWrite {
		t.Errorf("Direction mismatch: expected %q, got %q", DirWrite, f.Direction())
	}
	if f.CRC() != 0x1234 {
		t.Errorf("CRC mismatch: expected 0x1234, got 0x%04X", f.CRC())
	}
	if !bytes.Equal(f.Payload(), payload) {
		t.Errorf("Payload mismatch: expected %v, got %v", payload, f.Payload())
	}
}

func TestFrame_Directions(t *testing.T) {
	w := NewFrame(DefaultAddress, DirWrite, []byte{ModeByteRaw}, 0)
	if !w.IsWrite() || w.IsRead() || w.IsEcho() {
		t.Error("write frame direction predicates wrong")
	}

	r := NewFrame(DefaultAddress, DirRead, nil, 0)
	if !r.IsRead() || r.IsWrite() || r.IsEcho() {
		t.Error("read frame direction predicates wrong")
	}

	e := NewFrame(DefaultAddress, DirEcho, []byte{0x00}, 0)
	if !e.IsEcho() || e.IsWrite() || e.IsRead() {
		t.Error("echo frame direction predicates wrong")
	}
}

func TestFrame_Mode(t *testing.T) {
	p := NewFrame(DefaultAddress, DirWrite, []byte{ModeByteProjector, 1, KeyOK}, 0)
	if p.ModeByte() != ModeByteProjector {
		t.Errorf("ModeByte mismatch: expected 0x%02X, got 0x%02X", ModeByteProjector, p.ModeByte())
	}
	if p.Mode() != ModeProjector {
		t.Errorf("Mode mismatch: expected %v, got %v", ModeProjector, p.Mode())
	}

	empty := NewFrame(DefaultAddress, DirWrite, nil, 0)
	if empty.ModeByte() != 0 {
		t.Error("empty frame ModeByte should be 0")
	}
	if empty.Mode() != ModeNone {
		t.Error("empty frame Mode should be ModeNone")
	}
}

func TestFrame_Timestamp(t *testing.T) {
	f := NewFrame(DefaultAddress, DirRead, nil, 0)
	if f.Timestamp().IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()

	// Get partway into a frame, then abandon it
	d.DecodeByte(StartByte)
	d.DecodeByte(0x04)

	d.Reset()

	// Back in the hunting state, non-START bytes are ignored
	frame, err := d.DecodeByte(0x00)
	if frame != nil || err != nil {
		t.Error("After reset, decoder should be in IDLE state ignoring non-START bytes")
	}
}

func TestDecoder_GetRawBytes(t *testing.T) {
	d := NewDecoder()

	d.DecodeByte(StartByte)
	d.DecodeByte(0x03)
	d.DecodeByte(DefaultAddress)
	d.DecodeByte(DirWrite)

	raw := d.GetRawBytes()
	if len(raw) == 0 {
		t.Error("GetRawBytes should return accumulated bytes")
	}
}

func TestDecoder_KeyWriteFrame(t *testing.T) {
	d := NewDecoder()

	payload := []byte{ModeByteProjector, 2, KeyPower, KeyInput}
	frame, err := feedFrame(d, DefaultAddress, DirWrite, payload)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if frame == nil {
		t.Fatal("Expected frame, got nil")
	}

	if frame.Length() != uint8(len(payload)) {
		t.Errorf("Length mismatch: expected %d, got %d", len(payload), frame.Length())
	}
	if frame.Address() != DefaultAddress {
		t.Errorf("Address mismatch: expected 0x%02X, got 0x%02X", DefaultAddress, frame.Address())
	}
	if frame.Mode() != ModeProjector {
		t.Errorf("Mode mismatch: expected %v, got %v", ModeProjector, frame.Mode())
	}
	if !bytes.Equal(frame.Payload(), payload) {
		t.Errorf("Payload mismatch: expected %v, got %v", payload, frame.Payload())
	}
}

func TestDecoder_EmptyPayloadFrame(t *testing.T) {
	d := NewDecoder()

	frame, err := feedFrame(d, DefaultAddress, DirRead, nil)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if frame == nil {
		t.Fatal("Expected frame, got nil")
	}
	if !frame.IsRead() {
		t.Error("Expected read direction")
	}
	if frame.Length() != 0 {
		t.Errorf("Length mismatch: expected 0, got %d", frame.Length())
	}
}

func TestDecoder_ByteStuffing(t *testing.T) {
	d := NewDecoder()

	// Raw payload carrying all three framing values as duration bytes
	payload := []byte{ModeByteRaw, StartByte, EscByte, EndByte, 0x10}
	frame, err := feedFrame(d, DefaultAddress, DirWrite, payload)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if frame == nil {
		t.Fatal("Expected frame, got nil")
	}

	if !bytes.Equal(frame.Payload(), payload) {
		t.Errorf("Payload mismatch: expected %v, got %v", payload, frame.Payload())
	}
}

func TestDecoder_CRCMismatch(t *testing.T) {
	d := NewDecoder()

	payload := []byte{ModeByteProjector, 1, KeyPower}

	d.DecodeByte(StartByte)
	feedStuffed(d, uint8(len(payload)))
	feedStuffed(d, DefaultAddress)
	feedStuffed(d, DirWrite)
	for _, b := range payload {
		feedStuffed(d, b)
	}

	// Checksum bytes that cannot match the payload
	d.DecodeByte(0xBE)
	d.DecodeByte(0xEF)

	frame, err := d.DecodeByte(EndByte)
	if err == nil {
		t.Error("Expected CRC mismatch error, got nil")
	} else if !strings.Contains(err.Error(), "CRC mismatch") {
		t.Errorf("Expected 'CRC mismatch' error, got '%s'", err.Error())
	}
	if frame != nil {
		t.Error("Expected nil frame on CRC error")
	}
}

func TestDecoder_InvalidLength(t *testing.T) {
	d := NewDecoder()

	// A length byte past the payload ceiling is rejected immediately
	d.DecodeByte(StartByte)
	_, err := d.DecodeByte(MaxPayloadSize + 1)
	if err == nil {
		t.Error("Expected error for invalid length")
	}
}

func TestDecoder_InvalidDirection(t *testing.T) {
	d := NewDecoder()

	d.DecodeByte(StartByte)
	d.DecodeByte(0x00)
	d.DecodeByte(DefaultAddress)
	_, err := d.DecodeByte('Z')
	if err == nil {
		t.Error("Expected error for invalid direction byte")
	}
}

func TestDecoder_UnexpectedEnd(t *testing.T) {
	d := NewDecoder()

	d.DecodeByte(StartByte)
	d.DecodeByte(0x04)

	_, err := d.DecodeByte(EndByte)
	if err == nil {
		t.Error("Expected error for END byte before CRC")
	}
}

func TestDecoder_StartByteResetsState(t *testing.T) {
	d := NewDecoder()

	// Start a frame and abandon it mid-payload
	d.DecodeByte(StartByte)
	d.DecodeByte(0x04)
	d.DecodeByte(DefaultAddress)
	d.DecodeByte(DirWrite)
	d.DecodeByte(ModeByteProjector)

	// A fresh START should reset and decode a complete frame cleanly
	frame, err := feedFrame(d, DefaultAddress, DirRead, nil)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if frame == nil {
		t.Fatal("Expected frame after START reset")
	}
	if !frame.IsRead() {
		t.Error("Expected read direction after START reset")
	}
}

func TestDecoder_IdleIgnoresNoise(t *testing.T) {
	d := NewDecoder()

	for _, b := range []byte{0x00, 0x55, 0xAA, DirWrite, ModeByteProjector} {
		frame, err := d.DecodeByte(b)
		if frame != nil || err != nil {
			t.Fatalf("Idle decoder should ignore noise byte 0x%02X", b)
		}
	}

	// A frame after noise still decodes
	frame, err := feedFrame(d, DefaultAddress, DirRead, nil)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if frame == nil {
		t.Fatal("Expected frame after noise")
	}
}

func TestDecoder_InvalidState(t *testing.T) {
	d := NewDecoder()

	d.DecodeByte(StartByte)

	if d.state != stateLength {
		t.Fatalf("Expected stateLength after StartByte, got %d", d.state)
	}

	d.state = 999

	_, err := d.DecodeByte(0x04)
	if err == nil {
		t.Error("Expected error for invalid decoder state")
	}
}

// ============================================================
// Validation Tests
// ============================================================

func TestValidateFrame_ReadRequest(t *testing.T) {
	f := NewReadRequest(DefaultAddress)

	errors := ValidateFrame(f)
	if len(errors) != 0 {
		t.Errorf("Expected no validation errors for read request, got %d: %v", len(errors), errors)
	}
}

func TestValidateFrame_KeyWrite_Valid(t *testing.T) {
	f := NewKeyWrite(DefaultAddress, KeyPower, KeyVolumeUp)

	errors := ValidateFrame(f)
	if len(errors) != 0 {
		t.Errorf("Expected no validation errors, got %d: %v", len(errors), errors)
	}
}

func TestValidateFrame_EmptyWrite(t *testing.T) {
	f := NewFrame(DefaultAddress, DirWrite, nil, 0)

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d", len(errors))
	}
	if errors[0].Type != ANOMALY_EMPTY_WRITE {
		t.Errorf("Expected ANOMALY_EMPTY_WRITE, got %d", errors[0].Type)
	}
}

func TestValidateFrame_UnknownMode(t *testing.T) {
	f := NewFrame(DefaultAddress, DirWrite, []byte{'x', 0x01, 0x02}, 0)

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d", len(errors))
	}
	if errors[0].Type != ANOMALY_UNKNOWN_MODE {
		t.Errorf("Expected ANOMALY_UNKNOWN_MODE, got %d", errors[0].Type)
	}
}

func TestValidateFrame_ModeProbe(t *testing.T) {
	p := NewModeProbe(DefaultAddress, ModeByteProjector)
	if errors := ValidateFrame(p); len(errors) != 0 {
		t.Errorf("Expected no validation errors for projector probe, got %v", errors)
	}

	r := NewModeProbe(DefaultAddress, ModeByteRaw)
	if errors := ValidateFrame(r); len(errors) != 0 {
		t.Errorf("Expected no validation errors for raw probe, got %v", errors)
	}
}

func TestValidateFrame_CountMismatch(t *testing.T) {
	// Count slot claims 3 keys, payload carries 2
	f := NewFrame(DefaultAddress, DirWrite, []byte{ModeByteProjector, 3, KeyUp, KeyDown}, 0)

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d: %v", len(errors), errors)
	}
	if errors[0].Type != ANOMALY_COUNT_MISMATCH {
		t.Errorf("Expected ANOMALY_COUNT_MISMATCH, got %d", errors[0].Type)
	}
}

func TestValidateFrame_BankOverrun(t *testing.T) {
	keys := make([]byte, MaxKeys+8)
	for i := range keys {
		keys[i] = KeyUp
	}
	f := NewKeyWrite(DefaultAddress, keys...)

	errors := ValidateFrame(f)
	if len(errors) != 2 {
		t.Fatalf("Expected 2 validation errors, got %d: %v", len(errors), errors)
	}

	var sawCount, sawOverrun bool
	for _, err := range errors {
		switch err.Type {
		case ANOMALY_COUNT_MISMATCH:
			sawCount = true
		case ANOMALY_BANK_OVERRUN:
			sawOverrun = true
		}
	}
	if !sawCount {
		t.Error("Expected ANOMALY_COUNT_MISMATCH for count above MaxKeys")
	}
	if !sawOverrun {
		t.Error("Expected ANOMALY_BANK_OVERRUN for payload beyond bank capacity")
	}
}

func TestValidateFrame_UnmappedKey(t *testing.T) {
	f := NewKeyWrite(DefaultAddress, KeyPower, 'Q')

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d: %v", len(errors), errors)
	}
	if errors[0].Type != ANOMALY_UNMAPPED_KEY {
		t.Errorf("Expected ANOMALY_UNMAPPED_KEY, got %d", errors[0].Type)
	}
}

func TestValidateFrame_ZeroKey(t *testing.T) {
	f := NewKeyWrite(DefaultAddress, KeyPower, 0x00, KeyMenu)

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d: %v", len(errors), errors)
	}
	if errors[0].Type != ANOMALY_ZERO_VALUE {
		t.Errorf("Expected ANOMALY_ZERO_VALUE, got %d", errors[0].Type)
	}
}

func TestValidateFrame_RawWrite_Valid(t *testing.T) {
	f := NewRawWrite(DefaultAddress, []uint16{9000, 4500, 562})

	errors := ValidateFrame(f)
	if len(errors) != 0 {
		t.Errorf("Expected no validation errors, got %d: %v", len(errors), errors)
	}
}

func TestValidateFrame_OddRawPayload(t *testing.T) {
	f := NewFrame(DefaultAddress, DirWrite, []byte{ModeByteRaw, 0x23, 0x28, 0x11}, 0)

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d: %v", len(errors), errors)
	}
	if errors[0].Type != ANOMALY_ODD_RAW_PAYLOAD {
		t.Errorf("Expected ANOMALY_ODD_RAW_PAYLOAD, got %d", errors[0].Type)
	}
}

func TestValidateFrame_RawOverrun(t *testing.T) {
	words := make([]uint16, RawBufferSize+1)
	for i := range words {
		words[i] = 100
	}
	f := NewRawWrite(DefaultAddress, words)

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d: %v", len(errors), errors)
	}
	if errors[0].Type != ANOMALY_BANK_OVERRUN {
		t.Errorf("Expected ANOMALY_BANK_OVERRUN, got %d", errors[0].Type)
	}
}

func TestValidateFrame_ZeroWord(t *testing.T) {
	f := NewRawWrite(DefaultAddress, []uint16{9000, 0, 562})

	errors := ValidateFrame(f)
	if len(errors) != 1 {
		t.Fatalf("Expected 1 validation error, got %d: %v", len(errors), errors)
	}
	if errors[0].Type != ANOMALY_ZERO_VALUE {
		t.Errorf("Expected ANOMALY_ZERO_VALUE, got %d", errors[0].Type)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Type:    ANOMALY_UNMAPPED_KEY,
		Message: "key has no NEC code",
		Details: map[string]interface{}{"key": byte('Q')},
	}
	errStr := err.Error()
	if errStr != "key has no NEC code" {
		t.Errorf("Error() should return message, got '%s'", errStr)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_NewStatistics(t *testing.T) {
	s := NewStatistics()
	if s.TotalFrames != 0 {
		t.Error("New statistics should have 0 total frames")
	}
	if s.ValidFrames != 0 {
		t.Error("New statistics should have 0 valid frames")
	}
	if s.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestStatistics_Update_ValidFrame(t *testing.T) {
	s := NewStatistics()
	f := NewKeyWrite(DefaultAddress, KeyPower)

	s.Update(f, nil, nil)

	if s.TotalFrames != 1 {
		t.Errorf("TotalFrames should be 1, got %d", s.TotalFrames)
	}
	if s.ValidFrames != 1 {
		t.Errorf("ValidFrames should be 1, got %d", s.ValidFrames)
	}
	if s.WriteFrames != 1 {
		t.Errorf("WriteFrames should be 1, got %d", s.WriteFrames)
	}
}

func TestStatistics_Update_Directions(t *testing.T) {
	s := NewStatistics()

	s.Update(NewReadRequest(DefaultAddress), nil, nil)
	s.Update(NewEcho(DefaultAddress, []byte{0x00}), nil, nil)

	if s.ReadFrames != 1 {
		t.Errorf("ReadFrames should be 1, got %d", s.ReadFrames)
	}
	if s.EchoFrames != 1 {
		t.Errorf("EchoFrames should be 1, got %d", s.EchoFrames)
	}
}

func TestStatistics_Update_CRCError(t *testing.T) {
	s := NewStatistics()
	err := &testError{msg: "CRC mismatch: expected 0x1234, got 0x5678"}

	s.Update(nil, err, nil)

	if s.TotalFrames != 1 {
		t.Errorf("TotalFrames should be 1, got %d", s.TotalFrames)
	}
	if s.CRCErrors != 1 {
		t.Errorf("CRCErrors should be 1, got %d", s.CRCErrors)
	}
}

func TestStatistics_Update_DecodeError(t *testing.T) {
	s := NewStatistics()
	err := &testError{msg: "invalid length: 200"}

	s.Update(nil, err, nil)

	if s.TotalFrames != 1 {
		t.Errorf("TotalFrames should be 1, got %d", s.TotalFrames)
	}
	if s.DecodeErrors != 1 {
		t.Errorf("DecodeErrors should be 1, got %d", s.DecodeErrors)
	}
}

func TestStatistics_Update_ValidationErrors(t *testing.T) {
	s := NewStatistics()
	f := NewKeyWrite(DefaultAddress, 'Q')
	validationErrors := []ValidationError{
		{Type: ANOMALY_UNMAPPED_KEY, Message: "key has no NEC code"},
	}

	s.Update(f, nil, validationErrors)

	if s.TotalFrames != 1 {
		t.Errorf("TotalFrames should be 1, got %d", s.TotalFrames)
	}
	if s.UnmappedKeys != 1 {
		t.Errorf("UnmappedKeys should be 1, got %d", s.UnmappedKeys)
	}
	if s.AnomalousValues != 1 {
		t.Errorf("AnomalousValues should be 1, got %d", s.AnomalousValues)
	}
	if s.ValidFrames != 0 {
		t.Errorf("ValidFrames should be 0, got %d", s.ValidFrames)
	}
}

func TestStatistics_Update_MalformedTally(t *testing.T) {
	s := NewStatistics()
	f := NewFrame(DefaultAddress, DirWrite, nil, 0)

	s.Update(f, nil, ValidateFrame(f))

	if s.EmptyWrites != 1 {
		t.Errorf("EmptyWrites should be 1, got %d", s.EmptyWrites)
	}
	if s.MalformedFrames != 1 {
		t.Errorf("MalformedFrames should be 1, got %d", s.MalformedFrames)
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.TotalFrames = 100
	s.ValidFrames = 95
	s.CRCErrors = 5

	s.Reset()

	if s.TotalFrames != 0 {
		t.Error("TotalFrames should be 0 after reset")
	}
	if s.ValidFrames != 0 {
		t.Error("ValidFrames should be 0 after reset")
	}
	if s.CRCErrors != 0 {
		t.Error("CRCErrors should be 0 after reset")
	}
}

func TestStatistics_CalculateRates(t *testing.T) {
	s := NewStatistics()
	s.StartTime = time.Now().Add(-10 * time.Second)
	s.TotalFrames = 100
	s.CRCErrors = 5
	s.DecodeErrors = 3
	s.MalformedFrames = 2
	s.AnomalousValues = 1

	s.CalculateRates()

	if s.FrameRate <= 0 {
		t.Error("FrameRate should be positive")
	}
	if s.ErrorRate <= 0 {
		t.Error("ErrorRate should be positive")
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.TotalFrames = 100
	s.ValidFrames = 90
	s.WriteFrames = 60
	s.ReadFrames = 40
	s.CRCErrors = 3
	s.DecodeErrors = 2
	s.MalformedFrames = 3
	s.EmptyWrites = 1
	s.UnknownModes = 2
	s.AnomalousValues = 2
	s.UnmappedKeys = 1
	s.ZeroValues = 1

	result := s.String()

	if !strings.Contains(result, "Statistics") {
		t.Error("String should contain 'Statistics'")
	}
	if !strings.Contains(result, "Total Frames") {
		t.Error("String should contain 'Total Frames'")
	}
	if !strings.Contains(result, "Unmapped Keys") {
		t.Error("String should contain 'Unmapped Keys'")
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatDirection(t *testing.T) {
	tests := []struct {
		dir      byte
		expected string
	}{
		{DirWrite, "WRITE"},
		{DirRead, "READ"},
		{DirEcho, "ECHO"},
		{0x00, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatDirection(tt.dir)
			if result != tt.expected {
				t.Errorf("FormatDirection(0x%02X) = %s, expected %s", tt.dir, result, tt.expected)
			}
		})
	}
}

func TestFormatPayload_ReadRequest(t *testing.T) {
	result := FormatPayload(DirRead, nil)
	if result != "  (no payload)\n" {
		t.Errorf("Expected '  (no payload)\\n', got '%s'", result)
	}
}

func TestFormatPayload_KeyWrite(t *testing.T) {
	f := NewKeyWrite(DefaultAddress, KeyPower, 'Q')
	result := FormatPayload(f.Direction(), f.Payload())

	if !strings.Contains(result, "PROJECTOR") {
		t.Error("Should contain mode name 'PROJECTOR'")
	}
	if !strings.Contains(result, "POWER") {
		t.Error("Should contain key name 'POWER'")
	}
	if !strings.Contains(result, "unmapped") {
		t.Error("Should flag the unmapped key")
	}
}

func TestFormatPayload_RawWrite(t *testing.T) {
	f := NewRawWrite(DefaultAddress, []uint16{9000, 4500})
	result := FormatPayload(f.Direction(), f.Payload())

	if !strings.Contains(result, "RAW") {
		t.Error("Should contain mode name 'RAW'")
	}
	if !strings.Contains(result, "mark") {
		t.Error("Should contain a mark line")
	}
	if !strings.Contains(result, "space") {
		t.Error("Should contain a space line")
	}
	if !strings.Contains(result, "13.5 ms") {
		t.Errorf("Should contain the total duration, got '%s'", result)
	}
}

func TestFormatPayload_UnknownMode(t *testing.T) {
	result := FormatPayload(DirWrite, []byte{'x', 0x01})
	if !strings.Contains(result, "UNKNOWN") {
		t.Error("Should contain 'UNKNOWN'")
	}
}

func TestFormatPayload_Echo(t *testing.T) {
	result := FormatPayload(DirEcho, []byte{0x02, 0x50, 0x4D})
	if !strings.Contains(result, "Registers: 3 bytes") {
		t.Errorf("Should contain register byte count, got '%s'", result)
	}
}

func TestFormatFrame(t *testing.T) {
	f := NewKeyWrite(DefaultAddress, KeyPower)
	result := FormatFrame(f)

	if !strings.Contains(result, "WRITE") {
		t.Error("Should contain frame direction")
	}
	if !strings.Contains(result, "addr=0x05") {
		t.Error("Should contain bus address")
	}
	if !strings.Contains(result, "00FD40BF") {
		t.Error("Should contain the NEC code")
	}
}

func TestFormatPulses(t *testing.T) {
	pulses := NECPulses(CodePower)
	result := FormatPulses(pulses)

	if !strings.Contains(result, "mark") {
		t.Error("Should contain mark durations")
	}
	if !strings.Contains(result, "total") {
		t.Error("Should contain the total duration")
	}
}

func TestFormatMicros(t *testing.T) {
	if got := formatMicros(562); got != "562 µs" {
		t.Errorf("formatMicros(562) = %s, want '562 µs'", got)
	}
	if got := formatMicros(9000); got != "9.0 ms" {
		t.Errorf("formatMicros(9000) = %s, want '9.0 ms'", got)
	}
}

// ============================================================
// Key Map Tests
// ============================================================

func TestLookupKey_AllKeys(t *testing.T) {
	tests := []struct {
		key  byte
		code uint32
	}{
		{KeyPower, CodePower},
		{KeyMenu, CodeMenu},
		{KeyInput, CodeInput},
		{KeyOK, CodeOK},
		{KeyEsc, CodeEsc},
		{KeyMute, CodeMute},
		{KeyUp, CodeUp},
		{KeyLeft, CodeLeft},
		{KeyRight, CodeRight},
		{KeyDown, CodeDown},
		{KeyVolumeUp, CodeVolumeUp},
		{KeyVolumeDown, CodeVolumeDown},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			code, ok := LookupKey(tt.key)
			if !ok {
				t.Fatalf("LookupKey(%q) not found", tt.key)
			}
			if code != tt.code {
				t.Errorf("LookupKey(%q) = 0x%08X, want 0x%08X", tt.key, code, tt.code)
			}
		})
	}
}

func TestLookupKey_CaseAliases(t *testing.T) {
	// Lowercase aliases resolve where the other case is free
	if code, ok := LookupKey('u'); !ok || code != CodeUp {
		t.Errorf("LookupKey('u') = 0x%08X, %v; want CodeUp", code, ok)
	}
	if code, ok := LookupKey('d'); !ok || code != CodeDown {
		t.Errorf("LookupKey('d') = 0x%08X, %v; want CodeDown", code, ok)
	}

	// 'M'/'m' and 'V'/'v' are distinct table entries, never aliases
	if code, _ := LookupKey('M'); code != CodeMenu {
		t.Errorf("LookupKey('M') = 0x%08X, want CodeMenu", code)
	}
	if code, _ := LookupKey('m'); code != CodeMute {
		t.Errorf("LookupKey('m') = 0x%08X, want CodeMute", code)
	}
	if code, _ := LookupKey('V'); code != CodeVolumeUp {
		t.Errorf("LookupKey('V') = 0x%08X, want CodeVolumeUp", code)
	}
	if code, _ := LookupKey('v'); code != CodeVolumeDown {
		t.Errorf("LookupKey('v') = 0x%08X, want CodeVolumeDown", code)
	}
}

func TestLookupKey_Unmapped(t *testing.T) {
	if _, ok := LookupKey('Q'); ok {
		t.Error("LookupKey('Q') should not resolve")
	}
	if _, ok := LookupKey(0x00); ok {
		t.Error("LookupKey(0x00) should not resolve")
	}
}

func TestNameForKey(t *testing.T) {
	if name := NameForKey(KeyPower); name != "POWER" {
		t.Errorf("NameForKey('P') = %s, want POWER", name)
	}
	if name := NameForKey('p'); name != "POWER" {
		t.Errorf("NameForKey('p') = %s, want POWER (alias)", name)
	}
	if name := NameForKey('m'); name != "MUTE" {
		t.Errorf("NameForKey('m') = %s, want MUTE", name)
	}
	if name := NameForKey('Q'); name != "" {
		t.Errorf("NameForKey('Q') = %s, want empty", name)
	}
}

func TestKeyForName(t *testing.T) {
	tests := []struct {
		name    string
		wantKey byte
		wantOK  bool
	}{
		{"POWER", KeyPower, true},
		{"power", KeyPower, true},
		{"VOL_UP", KeyVolumeUp, true},
		{"vol-up", KeyVolumeUp, true},
		{"vol+", KeyVolumeUp, true},
		{"volume_down", KeyVolumeDown, true},
		{"MUTE", KeyMute, true},
		{"MENU", KeyMenu, true},
		{"P", KeyPower, true},
		{"bogus", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := KeyForName(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("KeyForName(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
			if ok && key != tt.wantKey {
				t.Errorf("KeyForName(%q) = %q, want %q", tt.name, key, tt.wantKey)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 12 {
		t.Fatalf("Keys() length = %d, want 12", len(keys))
	}

	// Returned slice is a copy
	keys[0].Name = "CLOBBERED"
	if Keys()[0].Name == "CLOBBERED" {
		t.Error("Keys() should return a copy of the table")
	}
}

// ============================================================
// Capture Tests
// ============================================================

func TestCapture_RoundTrip(t *testing.T) {
	frames := []*Frame{
		NewKeyWrite(DefaultAddress, KeyPower),
		NewRawWrite(DefaultAddress, []uint16{9000, 4500}),
		NewReadRequest(DefaultAddress),
		NewEcho(DefaultAddress, []byte{0x01, 0x50}),
	}

	var buf bytes.Buffer
	cw := NewCaptureWriter(&buf)
	for _, f := range frames {
		if err := cw.Write(f); err != nil {
			t.Fatalf("capture write failed: %v", err)
		}
	}

	cr := NewCaptureReader(&buf)
	for i, want := range frames {
		got, err := cr.Next()
		if err != nil {
			t.Fatalf("capture read %d failed: %v", i, err)
		}
		if got.Direction() != want.Direction() {
			t.Errorf("frame %d direction mismatch: got %q, want %q", i, got.Direction(), want.Direction())
		}
		if got.Address() != want.Address() {
			t.Errorf("frame %d address mismatch: got 0x%02X, want 0x%02X", i, got.Address(), want.Address())
		}
		if !bytes.Equal(got.Payload(), want.Payload()) {
			t.Errorf("frame %d payload mismatch: got %v, want %v", i, got.Payload(), want.Payload())
		}
	}

	if _, err := cr.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at end of capture, got %v", err)
	}
}

func TestCapture_SequenceNumbers(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCaptureWriter(&buf)
	for i := 0; i < 3; i++ {
		if err := cw.Write(NewReadRequest(DefaultAddress)); err != nil {
			t.Fatalf("capture write %d failed: %v", i, err)
		}
	}

	// Inspect the raw records; the frame-level reader drops the seq field
	dec := cbor.NewDecoder(&buf)
	for want := uint64(0); want < 3; want++ {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("record decode failed: %v", err)
		}
		if rec.Seq != want {
			t.Errorf("seq mismatch: got %d, want %d", rec.Seq, want)
		}
	}
}

func TestCapture_PreservesTimestamps(t *testing.T) {
	f := NewKeyWrite(DefaultAddress, KeyMenu)

	var buf bytes.Buffer
	cw := NewCaptureWriter(&buf)
	if err := cw.Write(f); err != nil {
		t.Fatalf("capture write failed: %v", err)
	}

	got, err := NewCaptureReader(&buf).Next()
	if err != nil {
		t.Fatalf("capture read failed: %v", err)
	}

	want := f.Timestamp().Truncate(time.Microsecond)
	if !got.Timestamp().Equal(want) {
		t.Errorf("timestamp mismatch: got %v, want %v", got.Timestamp(), want)
	}
}

func TestRecord_Frame(t *testing.T) {
	f := NewRawWrite(DefaultAddress, []uint16{1200, 600})
	rec := NewRecord(f)

	rebuilt := rec.Frame()
	if rebuilt.Direction() != DirWrite {
		t.Errorf("direction mismatch: got %q, want %q", rebuilt.Direction(), DirWrite)
	}
	if rebuilt.Length() != f.Length() {
		t.Errorf("length mismatch: got %d, want %d", rebuilt.Length(), f.Length())
	}
	if !bytes.Equal(rebuilt.Payload(), f.Payload()) {
		t.Errorf("payload mismatch: got %v, want %v", rebuilt.Payload(), f.Payload())
	}
}
