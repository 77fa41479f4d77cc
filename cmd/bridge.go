// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

var (
	bridgeTick   time.Duration
	bridgeGap    time.Duration
	bridgePadOdd bool
	bridgeTrace  bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the software peripheral on a tunnel connection",
	Long: `Run the peripheral core on this host and serve bus transactions from the tunnel.

The bridge answers write and read frames exactly like the hardware device:
writes land in the register banks, reads echo the active bank from the
cursor, and the scheduler converts queued commands into emissions on every
tick. Emissions are printed to the console instead of driving a diode,
which makes the bridge the bench stand-in for firmware during host
development.

Use --trace to print the full mark/space pulse train of every emission.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().DurationVar(&bridgeTick, "tick", irda.DefaultTickPeriod, "Scheduler cycle interval")
	bridgeCmd.Flags().DurationVar(&bridgeGap, "gap", irda.DefaultCommandGap, "Pause between key emissions in one cycle")
	bridgeCmd.Flags().BoolVar(&bridgePadOdd, "pad-odd", false, "Zero-pad the dangling byte of an odd raw payload")
	bridgeCmd.Flags().BoolVar(&bridgeTrace, "trace", false, "Print the pulse train of each emission")
}

// consoleEmitter prints emissions instead of driving hardware
type consoleEmitter struct {
	trace bool
}

func (e *consoleEmitter) EmitNEC(code uint32) error {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;36mEMIT NEC:\033[0m %s code=0x%08X driver=0x%08X\n",
		timestamp, keyNameForCode(code), code, irda.DriverData(code))
	if e.trace {
		fmt.Print(irda.FormatPulses(irda.NECPulses(code)))
	}
	return nil
}

func (e *consoleEmitter) EmitRaw(words []uint16) error {
	timestamp := time.Now().Format("15:04:05.000")
	pulses := irda.BurstPulses(words)
	fmt.Printf("[%s] \033[1;36mEMIT RAW:\033[0m %d words, %v burst\n",
		timestamp, len(words), irda.PulseDuration(pulses))
	if e.trace {
		fmt.Print(irda.FormatPulses(pulses))
	}
	return nil
}

// keyNameForCode resolves an NEC code back to its remote key name
func keyNameForCode(code uint32) string {
	for _, info := range irda.Keys() {
		if info.Code == code {
			return info.Name
		}
	}
	return "?"
}

func runBridge(cmd *cobra.Command, args []string) error {
	// Serial or WebSocket, per the persistent flags
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("artik-ir - Peripheral Bridge\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Address: 0x%02X, tick %v, gap %v\n", busAddress, bridgeTick, bridgeGap)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := irda.NewPeripheral(irda.Config{
		Address:       busAddress,
		TickPeriod:    bridgeTick,
		CommandGap:    bridgeGap,
		PadOddPayload: bridgePadOdd,
		Emitter:       &consoleEmitter{trace: bridgeTrace},
	})

	runDone := make(chan error, 1)
	go func() {
		runDone <- p.Run(ctx)
	}()

	// Channel for non-blocking tunnel reads. Closing it tells the main
	// loop the tunnel is gone.
	tunnelBuf := make(chan []byte, 10)
	go func() {
		defer close(tunnelBuf)
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if ctx.Err() != nil || err == ErrConnectionClosed {
					return
				}
				log.Printf("Read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			tunnelBuf <- data
		}
	}()

	decoder := irda.NewDecoder()

	// Sync tracking - ignore decode errors until first valid frame
	synchronized := false
	invalidBytesBeforeSync := 0

	// Bridge-side tallies; the peripheral keeps its own counters
	var framesIgnored, readsServed, writesForwarded uint64

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case data, ok := <-tunnelBuf:
			if !ok {
				log.Printf("Connection closed")
				break loop
			}
			for _, b := range data {
				frame, decodeErr := decoder.DecodeByte(b)

				if decodeErr != nil {
					if synchronized {
						printDecodeError(decodeErr)
					} else {
						invalidBytesBeforeSync++
					}
					continue
				}
				if frame == nil {
					continue
				}

				if !synchronized {
					synchronized = true
					if invalidBytesBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", invalidBytesBeforeSync)
					}
				}

				// Echo frames are another peripheral's replies; frames
				// for other addresses are not ours to answer.
				if frame.IsEcho() || frame.Address() != busAddress {
					framesIgnored++
					continue
				}

				if frame.IsRead() {
					reply, err := p.Request(ctx)
					if err != nil {
						break loop
					}
					echo, err := irda.EncodeFrame(busAddress, irda.DirEcho, reply)
					if err != nil {
						log.Printf("Echo encode error: %v", err)
						continue
					}
					if _, err := conn.Write(echo); err != nil {
						log.Printf("Echo write error: %v", err)
						break loop
					}
					readsServed++
					continue
				}

				p.Post(frame.Payload())
				writesForwarded++
			}
		}
	}

	stop()
	<-runDone

	// Counters are safe to read once Run has returned
	counters := p.Counters()
	fmt.Printf("\nBridge summary:\n")
	fmt.Printf("  Writes forwarded:  %d\n", writesForwarded)
	fmt.Printf("  Reads served:      %d\n", readsServed)
	fmt.Printf("  Frames ignored:    %d\n", framesIgnored)
	fmt.Printf("  Scheduler ticks:   %d\n", counters.Ticks)
	fmt.Printf("  Keys emitted:      %d\n", counters.KeysEmitted)
	fmt.Printf("  Bursts emitted:    %d\n", counters.BurstsEmitted)
	fmt.Printf("  Unmapped keys:     %d\n", counters.KeysUnmapped)
	fmt.Printf("  Unknown modes:     %d\n", counters.UnknownModes)
	fmt.Printf("  Dropped bytes:     %d\n", counters.DroppedBytes)
	return nil
}
