// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

var (
	probeMode    string
	probeTimeout int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test a live peripheral with a mode probe and read-back",
	Long: `Check that a peripheral is alive and sane on the bus.

The probe writes a bare mode selector (which rewinds the register cursor
without storing anything), then issues a read transaction and waits for
the echo frame. The echo's length tells us where the cursor sits; right
after a probe a healthy peripheral answers with the full bank.

Exit codes:
  0 - Echo received and the window looks healthy
  1 - Timeout, or the echo window does not match the probed bank
  2 - Connection error

Useful for checking an I2C bridge or firmware flash before trusting it
with real traffic.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVar(&probeMode, "mode", "projector", "Bank to probe: projector or raw")
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for the echo")
}

func runProbe(cmd *cobra.Command, args []string) error {
	var modeByte byte
	var capacity int
	switch probeMode {
	case "projector", "p":
		modeByte = irda.ModeByteProjector
		capacity = irda.CommandBufferSize
	case "raw", "r":
		modeByte = irda.ModeByteRaw
		capacity = irda.RawBufferSize
	default:
		return fmt.Errorf("unknown bank %q (use projector or raw)", probeMode)
	}

	// Serial or WebSocket, per the persistent flags
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("artik-ir - Peripheral Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Probing 0x%02X, %s bank, timeout %d seconds\n\n", busAddress, probeMode, probeTimeout)

	decoder := irda.NewDecoder()
	buf := make([]byte, 128)

	echoChan := make(chan *irda.Frame, 1)
	errChan := make(chan error, 1)

	// Watch the tunnel for the first echo addressed to us
	go func() {
		invalidBytes := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					// Noise before sync is expected, count it and move on
					invalidBytes++
					continue
				}
				if frame == nil {
					continue
				}
				if !frame.IsEcho() || frame.Address() != busAddress {
					continue
				}
				// Got our echo
				if invalidBytes > 0 {
					fmt.Printf("(skipped %d invalid bytes before sync)\n", invalidBytes)
				}
				echoChan <- frame
				return
			}
		}
	}()

	// Mode probe rewinds the cursor, read request asks for the bank
	if _, err := conn.Write(irda.MustEncodeFrame(irda.NewModeProbe(busAddress, modeByte))); err != nil {
		fmt.Fprintf(os.Stderr, "Probe write error: %v\n", err)
		os.Exit(2)
	}
	sentAt := time.Now()
	if _, err := conn.Write(irda.MustEncodeFrame(irda.NewReadRequest(busAddress))); err != nil {
		fmt.Fprintf(os.Stderr, "Read request error: %v\n", err)
		os.Exit(2)
	}

	// Wait for echo or timeout
	select {
	case echo := <-echoChan:
		rtt := time.Since(sentAt)
		window := echo.Payload()
		fmt.Printf("SUCCESS: Echo received in %v\n", rtt)
		fmt.Printf("  Window: %d of %d slots\n", len(window), capacity)
		fmt.Printf("  CRC: 0x%04X\n", echo.CRC())
		healthy := diagnoseWindow(window, capacity)
		if !healthy {
			os.Exit(1)
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(probeTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No echo within %d seconds\n", probeTimeout)
		os.Exit(1)
	}

	return nil
}

// diagnoseWindow interprets an echo window against the probed bank
func diagnoseWindow(window []byte, capacity int) bool {
	switch {
	case len(window) == capacity:
		fmt.Printf("  Cursor: rewound to slot 0 (expected after a probe)\n")
	case len(window) == 0:
		fmt.Printf("  Cursor: parked at the bank boundary (slot %d)\n", capacity)
		fmt.Printf("  >>> PROBE DID NOT REWIND, WRONG BANK OR STALE FIRMWARE <<<\n")
		return false
	case len(window) < capacity:
		fmt.Printf("  Cursor: sitting at slot %d\n", capacity-len(window))
		fmt.Printf("  >>> CURSOR MOVED BETWEEN PROBE AND READ <<<\n")
		return false
	default:
		fmt.Printf("  >>> WINDOW LONGER THAN THE PROBED BANK (%d > %d) <<<\n", len(window), capacity)
		return false
	}

	if capacity == irda.CommandBufferSize {
		count := int(window[0])
		if count == 0 {
			fmt.Printf("  Queue: empty\n")
		} else {
			fmt.Printf("  Queue: %d pending key(s):", count)
			for i := 1; i <= count && i < len(window); i++ {
				name := irda.NameForKey(window[i])
				if name == "" {
					name = fmt.Sprintf("0x%02X", window[i])
				}
				fmt.Printf(" %s", name)
			}
			fmt.Println()
		}
	}
	return true
}
