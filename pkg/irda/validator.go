// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	ANOMALY_EMPTY_WRITE AnomalyType = iota
	ANOMALY_UNKNOWN_MODE
	ANOMALY_ODD_RAW_PAYLOAD
	ANOMALY_BANK_OVERRUN
	ANOMALY_COUNT_MISMATCH
	ANOMALY_UNMAPPED_KEY
	ANOMALY_ZERO_VALUE
	ANOMALY_CRC_ERROR
	ANOMALY_DECODE_ERROR
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame inspects a decoded frame for conditions the peripheral
// absorbs silently: unknown selectors, payloads that wrap the bank,
// values that collide with the end-of-data sentinel. Returns a slice of
// validation errors (empty if the frame is clean). The device itself
// never reports these; this is the observer's view of what it will do.
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}

	if !f.IsWrite() {
		return errors
	}

	if len(f.Payload()) == 0 {
		return []ValidationError{{
			Type:    ANOMALY_EMPTY_WRITE,
			Message: "Write frame with empty payload (device absorbs it)",
			Details: map[string]interface{}{"length": 0},
		}}
	}

	switch f.Mode() {
	case ModeProjector:
		errors = append(errors, validateKeyWrite(f)...)
	case ModeRaw:
		errors = append(errors, validateRawWrite(f)...)
	default:
		errors = append(errors, ValidationError{
			Type:    ANOMALY_UNKNOWN_MODE,
			Message: fmt.Sprintf("Unknown mode selector 0x%02X (device drops payload)", f.ModeByte()),
			Details: map[string]interface{}{"selector": f.ModeByte()},
		})
	}

	return errors
}

// validateKeyWrite validates a projector-mode key write
func validateKeyWrite(f *Frame) []ValidationError {
	errors := []ValidationError{}

	data := f.Payload()[1:]
	if len(data) == 0 {
		// Bare mode probe, nothing queued
		return errors
	}

	count := data[0]
	keys := data[1:]

	if int(count) != len(keys) {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_COUNT_MISMATCH,
			Message: fmt.Sprintf("Count slot says %d keys, payload carries %d", count, len(keys)),
			Details: map[string]interface{}{"count": count, "keys": len(keys)},
		})
	}

	if count > MaxKeys {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_COUNT_MISMATCH,
			Message: fmt.Sprintf("Count slot %d exceeds %d (scheduler clamps to one bank pass)", count, MaxKeys),
			Details: map[string]interface{}{"count": count, "max": MaxKeys},
		})
	}

	// Count slot plus keys must fit the command bank or the cursor wraps
	if len(data) > CommandBufferSize {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_BANK_OVERRUN,
			Message: fmt.Sprintf("Payload fills %d of %d command slots (cursor wraps, early slots overwritten)", len(data), CommandBufferSize),
			Details: map[string]interface{}{"slots": len(data), "capacity": CommandBufferSize},
		})
	}

	for i, key := range keys {
		if key == 0 {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_ZERO_VALUE,
				Message: fmt.Sprintf("Key %d is 0x00, collides with end-of-data sentinel (dispatch stops here)", i),
				Details: map[string]interface{}{"index": i},
			})
			continue
		}
		if _, ok := LookupKey(key); !ok {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_UNMAPPED_KEY,
				Message: fmt.Sprintf("Key %d = 0x%02X %q has no NEC code (scheduler skips it)", i, key, key),
				Details: map[string]interface{}{"index": i, "key": key},
			})
		}
	}

	return errors
}

// validateRawWrite validates a raw-mode burst write
func validateRawWrite(f *Frame) []ValidationError {
	errors := []ValidationError{}

	data := f.Payload()[1:]
	if len(data) == 0 {
		// Bare mode probe, nothing queued
		return errors
	}

	if len(data)%2 != 0 {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_ODD_RAW_PAYLOAD,
			Message: fmt.Sprintf("Raw payload has odd length %d, trailing byte has no pair", len(data)),
			Details: map[string]interface{}{"length": len(data)},
		})
	}

	words := len(data) / 2
	if words > RawBufferSize {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_BANK_OVERRUN,
			Message: fmt.Sprintf("Payload carries %d of %d duration words (cursor wraps, early slots overwritten)", words, RawBufferSize),
			Details: map[string]interface{}{"words": words, "capacity": RawBufferSize},
		})
	}

	for i := 0; i+1 < len(data); i += 2 {
		word := uint16(data[i])<<8 | uint16(data[i+1])
		if word == 0 {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_ZERO_VALUE,
				Message: fmt.Sprintf("Duration word %d is zero, collides with end-of-data sentinel (burst stops here)", i/2),
				Details: map[string]interface{}{"index": i / 2},
			})
		}
	}

	return errors
}
