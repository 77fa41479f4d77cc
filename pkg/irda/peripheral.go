// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import (
	"context"
	"time"
)

// Default scheduler timing
const (
	DefaultTickPeriod = 250 * time.Millisecond
	DefaultCommandGap = 100 * time.Millisecond
)

// eventQueueDepth bounds the write backlog between transport and scheduler
const eventQueueDepth = 16

// Config configures a peripheral instance
type Config struct {
	// Address is the 7-bit bus address the peripheral answers on.
	// Zero selects DefaultAddress.
	Address uint8

	// TickPeriod is the scheduler cycle interval used by Run.
	TickPeriod time.Duration

	// CommandGap separates consecutive NEC emissions within one cycle,
	// tuned to the receiving appliance's debounce window. Negative
	// disables the gap.
	CommandGap time.Duration

	// PadOddPayload zero-pads the dangling byte of an odd-length raw
	// payload into a final duration word. When false the byte is
	// dropped by the pairing scheme.
	PadOddPayload bool

	// Emitter drives the infrared channels. A nil emitter discards
	// emissions but the scheduler still consumes and clears normally.
	Emitter Emitter
}

// Counters tracks peripheral activity. The bus contract has no error
// reporting, so malformed traffic shows up here and nowhere else.
type Counters struct {
	WriteTransactions uint64
	ReadTransactions  uint64
	ModeProbes        uint64
	EmptyWrites       uint64
	UnknownModes      uint64
	DroppedBytes      uint64
	Ticks             uint64
	KeysEmitted       uint64
	KeysUnmapped      uint64
	BurstsEmitted     uint64
	EmitErrors        uint64
}

// Peripheral is the IR register-file device: register store, bus
// transaction servicing and the transmission scheduler in one owned
// struct. The synchronous methods (Receive, Service, Tick) assume a single
// caller; Run provides that by owning the peripheral on one goroutine and
// serializing bus events against scheduler cycles.
type Peripheral struct {
	cfg      Config
	file     *File
	counters Counters
	events   chan busEvent
}

// busEvent is one queued bus transaction. Write events carry the payload;
// read events carry the reply channel the host blocks on.
type busEvent struct {
	payload []byte
	reply   chan []byte
}

// NewPeripheral creates a peripheral with the given configuration,
// applying defaults for unset fields.
func NewPeripheral(cfg Config) *Peripheral {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.CommandGap == 0 {
		cfg.CommandGap = DefaultCommandGap
	}
	return &Peripheral{
		cfg:    cfg,
		file:   NewFile(),
		events: make(chan busEvent, eventQueueDepth),
	}
}

// Address returns the bus address the peripheral answers on
func (p *Peripheral) Address() uint8 {
	return p.cfg.Address
}

// Counters returns a snapshot of the activity counters.
// Only safe against a stopped or same-goroutine peripheral.
func (p *Peripheral) Counters() Counters {
	return p.counters
}

// Run owns the peripheral until the context is cancelled: queued bus
// events and scheduler ticks are serviced strictly one at a time, so a
// write can never race a dispatch cycle.
func (p *Peripheral) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			if ev.reply != nil {
				ev.reply <- p.Service()
			} else {
				p.Receive(ev.payload)
			}
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Post queues one write transaction for the run loop. The payload is
// copied; callers may reuse their buffer. Post blocks when the queue is
// full, which is the tunnel's version of bus-level backpressure.
func (p *Peripheral) Post(payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	p.events <- busEvent{payload: buf}
}

// Request performs one read transaction round trip through the run loop
func (p *Peripheral) Request(ctx context.Context) ([]byte, error) {
	reply := make(chan []byte, 1)
	select {
	case p.events <- busEvent{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case data := <-reply:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
