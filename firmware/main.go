// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

//go:build rp2040 || rp2350

// Firmware for the Artik infrared peripheral on an RP2040 board.
//
// The chip answers on the cabinet I2C bus as a register-file target and
// drives two infrared diodes: channel 1 carries NEC projector frames on a
// 38 kHz carrier, channel 2 replays captured bursts at 36 kHz. Flash with
// `tinygo flash -target=pico ./firmware`.
package main

import (
	"context"
	"errors"
	"machine"
	"time"

	"github.com/vam-vam/Artik/pkg/irda"
	"tinygo.org/x/drivers/irremote"
)

const (
	// irNECPin keys the 38 kHz diode. RP2040 slice = (pin >> 1) & 0x7,
	// so GP14 lands on PWM7.
	irNECPin = machine.GP14

	// irBurstPin keys the 36 kHz diode on GP16 (slice 0). The carriers
	// must live on separate slices because a slice has one period
	// register shared by both of its channels.
	irBurstPin = machine.GP16
)

// Debug counters, inspectable over SWD when the bus misbehaves. The
// peripheral core keeps its own counters for everything above the wire.
var (
	busWrites uint32
	busReads  uint32
	busErrors uint32
)

var errNECRejected = errors.New("NEC code rejected by sender")

// pwmSlice abstracts over TinyGo's unexported *pwmGroup type so the burst
// channel can hold its slice in a struct field.
type pwmSlice interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// hardwareEmitter drives the two diode channels behind the scheduler's
// Emitter port.
type hardwareEmitter struct {
	nec     irremote.SenderDevice
	burst   pwmSlice
	burstCh uint8
}

func newHardwareEmitter() (*hardwareEmitter, error) {
	nec := irremote.NewSender(irremote.SenderConfig{
		Pin:                 irNECPin,
		PWM:                 machine.PWM7,
		ModulationDutyCycle: irda.CarrierDutyPercent,
	})
	nec.Configure()

	irBurstPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	burst := pwmSlice(machine.PWM0)
	err := burst.Configure(machine.PWMConfig{
		Period: 1e9 / uint64(irda.RawCarrierFrequency),
	})
	if err != nil {
		return nil, err
	}
	ch, err := burst.Channel(irBurstPin)
	if err != nil {
		return nil, err
	}
	burst.Set(ch, 0)

	return &hardwareEmitter{nec: nec, burst: burst, burstCh: ch}, nil
}

// EmitNEC keys channel 1 with one 32-bit frame. The register code holds
// bits in transmission order; the driver wants the LSB-first wire word,
// so it goes through DriverData on the way out.
func (e *hardwareEmitter) EmitNEC(code uint32) error {
	if e.nec.SendNECRawCode(irda.DriverData(code)) == 0 {
		return errNECRejected
	}
	return nil
}

// EmitRaw replays a burst on channel 2, keying the 36 kHz carrier for
// each mark and parking it for each space.
func (e *hardwareEmitter) EmitRaw(words []uint16) error {
	on := e.burst.Top() * irda.CarrierDutyPercent / 100
	for _, p := range irda.BurstPulses(words) {
		e.burst.Set(e.burstCh, on)
		time.Sleep(p.Mark)
		e.burst.Set(e.burstCh, 0)
		time.Sleep(p.Space)
	}
	return nil
}

func main() {
	// A previous image may have left the watchdog armed across the reset.
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	emitter, err := newHardwareEmitter()
	if err != nil {
		return
	}

	p := irda.NewPeripheral(irda.Config{
		Emitter: emitter,
	})

	err = machine.I2C0.Configure(machine.I2CConfig{
		Mode: machine.I2CModeTarget,
		SDA:  machine.I2C0_SDA_PIN,
		SCL:  machine.I2C0_SCL_PIN,
	})
	if err != nil {
		return
	}
	if err := machine.I2C0.Listen(uint16(p.Address())); err != nil {
		return
	}

	// The run loop owns all register state and the tick schedule; the bus
	// loop below only posts transactions into it.
	go func() {
		_ = p.Run(context.Background())
	}()

	busLoop(p)
}

// busLoop services I2C target events forever. A controller write may
// arrive split across several receive events; bytes accumulate until the
// stop condition commits them as one transaction.
func busLoop(p *irda.Peripheral) {
	buf := make([]byte, irda.MaxPayloadSize)
	pending := make([]byte, 0, irda.MaxPayloadSize)

	for {
		// Recover from panics in the event loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					busErrors++
					pending = pending[:0]
				}
			}()

			evt, n, err := machine.I2C0.WaitForEvent(buf)
			if err != nil {
				busErrors++
				time.Sleep(time.Millisecond)
				return
			}

			switch evt {
			case machine.I2CReceive:
				pending = append(pending, buf[:n]...)
			case machine.I2CRequest:
				// A repeated start flips write to read without a stop
				// condition, so commit the write half first.
				if len(pending) > 0 {
					p.Post(pending)
					pending = pending[:0]
					busWrites++
				}
				reply, err := p.Request(context.Background())
				if err != nil {
					busErrors++
					return
				}
				if err := machine.I2C0.Reply(reply); err != nil {
					busErrors++
					return
				}
				busReads++
			case machine.I2CFinish:
				if len(pending) > 0 {
					p.Post(pending)
					pending = pending[:0]
					busWrites++
				}
			}
		}()
	}
}
