// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import (
	"fmt"
	"strings"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	WriteFrames     uint64
	ReadFrames      uint64
	EchoFrames      uint64
	CRCErrors       uint64
	DecodeErrors    uint64
	MalformedFrames uint64
	EmptyWrites     uint64
	UnknownModes    uint64
	OddRawPayloads  uint64
	BankOverruns    uint64
	CountMismatches uint64
	AnomalousValues uint64
	UnmappedKeys    uint64
	ZeroValues      uint64

	// Derived by CalculateRates
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics returns a tracker with the clock already running.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update folds one decode result into the tally. A decode error counts
// the attempt and stops; a decoded frame is classified by direction and
// then by whatever the validator found.
func (s *Statistics) Update(frame *Frame, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++

	if decodeErr != nil {
		// The decoder reports CRC failures with a fixed prefix; every
		// other decode error is a framing problem.
		if strings.HasPrefix(decodeErr.Error(), "CRC mismatch") {
			s.CRCErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	switch {
	case frame.IsWrite():
		s.WriteFrames++
	case frame.IsRead():
		s.ReadFrames++
	case frame.IsEcho():
		s.EchoFrames++
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		s.LastUpdateTime = time.Now()
		return
	}

	for _, err := range validationErrors {
		switch err.Type {
		case ANOMALY_EMPTY_WRITE:
			s.EmptyWrites++
			s.MalformedFrames++
		case ANOMALY_UNKNOWN_MODE:
			s.UnknownModes++
			s.MalformedFrames++
		case ANOMALY_ODD_RAW_PAYLOAD:
			s.OddRawPayloads++
			s.MalformedFrames++
		case ANOMALY_BANK_OVERRUN:
			s.BankOverruns++
			s.MalformedFrames++
		case ANOMALY_COUNT_MISMATCH:
			s.CountMismatches++
			s.MalformedFrames++
		case ANOMALY_UNMAPPED_KEY:
			s.UnmappedKeys++
			s.AnomalousValues++
		case ANOMALY_ZERO_VALUE:
			s.ZeroValues++
			s.AnomalousValues++
		}
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates refreshes the per-second rates from the elapsed time
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		errorCount := s.CRCErrors + s.DecodeErrors + s.MalformedFrames + s.AnomalousValues
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String renders the multi-line summary block the monitor prints.
func (s *Statistics) String() string {
	s.CalculateRates()

	pct := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, pct(s.ValidFrames))
	result += fmt.Sprintf("Write Frames:    %8d\n", s.WriteFrames)
	result += fmt.Sprintf("Read Frames:     %8d\n", s.ReadFrames)

	if s.EchoFrames > 0 {
		result += fmt.Sprintf("Echo Frames:     %8d\n", s.EchoFrames)
	}
	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, pct(s.CRCErrors))
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, pct(s.DecodeErrors))
	}
	if s.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed Frms:  %8d (%.1f%%)\n", s.MalformedFrames, pct(s.MalformedFrames))
		if s.EmptyWrites > 0 {
			result += fmt.Sprintf("  Empty Writes:     %5d\n", s.EmptyWrites)
		}
		if s.UnknownModes > 0 {
			result += fmt.Sprintf("  Unknown Modes:    %5d\n", s.UnknownModes)
		}
		if s.OddRawPayloads > 0 {
			result += fmt.Sprintf("  Odd Raw Payload:  %5d\n", s.OddRawPayloads)
		}
		if s.BankOverruns > 0 {
			result += fmt.Sprintf("  Bank Overruns:    %5d\n", s.BankOverruns)
		}
		if s.CountMismatches > 0 {
			result += fmt.Sprintf("  Count Mismatch:   %5d\n", s.CountMismatches)
		}
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, pct(s.AnomalousValues))
		if s.UnmappedKeys > 0 {
			result += fmt.Sprintf("  Unmapped Keys:    %5d\n", s.UnmappedKeys)
		}
		if s.ZeroValues > 0 {
			result += fmt.Sprintf("  Zero Sentinels:   %5d\n", s.ZeroValues)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frms/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset zeroes every counter and restarts the rate clock.
func (s *Statistics) Reset() {
	now := time.Now()
	*s = Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}
