// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one captured bus frame. Capture files are a bare CBOR stream
// of these, encoded as integer-keyed maps so readers can skip fields they
// do not know.
type Record struct {
	Seq        uint64 `cbor:"0,keyasint"`
	TimeMicros int64  `cbor:"1,keyasint"`
	Address    uint8  `cbor:"2,keyasint"`
	Direction  byte   `cbor:"3,keyasint"`
	Payload    []byte `cbor:"4,keyasint,omitempty"`
	CRC        uint16 `cbor:"5,keyasint"`
}

// NewRecord snapshots a frame into a capture record
func NewRecord(f *Frame) Record {
	return Record{
		TimeMicros: f.Timestamp().UnixMicro(),
		Address:    f.Address(),
		Direction:  f.Direction(),
		Payload:    f.Payload(),
		CRC:        f.CRC(),
	}
}

// Frame rebuilds the captured frame, capture timestamp included
func (r Record) Frame() *Frame {
	return &Frame{
		length:    uint8(len(r.Payload)),
		address:   r.Address,
		direction: r.Direction,
		payload:   r.Payload,
		crc:       r.CRC,
		timestamp: time.UnixMicro(r.TimeMicros),
	}
}

// CaptureWriter appends frames to a capture stream
type CaptureWriter struct {
	enc *cbor.Encoder
	seq uint64
}

// NewCaptureWriter wraps a writer in a capture stream
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: cbor.NewEncoder(w)}
}

// Write appends one frame to the capture
func (cw *CaptureWriter) Write(f *Frame) error {
	rec := NewRecord(f)
	rec.Seq = cw.seq
	cw.seq++
	return cw.enc.Encode(rec)
}

// CaptureReader iterates frames out of a capture stream
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader wraps a reader holding a capture stream
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next captured frame, or io.EOF at end of stream
func (cr *CaptureReader) Next() (*Frame, error) {
	var rec Record
	if err := cr.dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec.Frame(), nil
}
