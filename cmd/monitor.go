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
	monitorShowAll       bool
	monitorStatsInterval int
	monitorSave          string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Decode and validate tunnel traffic",
	Long: `Continuously decode bus frames from the tunnel and flag trouble.

Every frame is checked for conditions the peripheral absorbs without
complaint: unknown mode selectors, payloads that wrap a register bank,
zero bytes that collide with the end-of-data sentinel, unmapped keys.
Decode and CRC errors are highlighted immediately; periodic statistics
summaries show rates and error breakdowns.

By default only problems are displayed. Use --show-all to display every
frame, and --save to append decoded frames to a capture file that 'replay'
and 'raw --file' can consume later.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Show all frames (not just problems)")
	monitorCmd.Flags().IntVar(&monitorStatsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().StringVar(&monitorSave, "save", "", "Append decoded frames to a capture file")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Serial or WebSocket, per the persistent flags
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var capture *irda.CaptureWriter
	if monitorSave != "" {
		f, err := os.OpenFile(monitorSave, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %v", err)
		}
		defer f.Close()
		capture = irda.NewCaptureWriter(f)
	}

	fmt.Printf("artik-ir - Tunnel Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", monitorStatsInterval)
	if monitorShowAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Problems only\n")
	}
	if monitorSave != "" {
		fmt.Printf("Capture: %s\n", monitorSave)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoder := irda.NewDecoder()
	stats := irda.NewStatistics()

	// Sync tracking - ignore decode errors until first valid frame
	synchronized := false
	invalidBytesBeforeSync := 0
	var captured uint64

	statsTicker := time.NewTicker(time.Duration(monitorStatsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking tunnel reads
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
						stats.Update(nil, decodeErr, nil)
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
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				validationErrors := irda.ValidateFrame(frame)
				stats.Update(frame, nil, validationErrors)

				if capture != nil {
					if err := capture.Write(frame); err != nil {
						log.Printf("Capture write error: %v", err)
						capture = nil
					} else {
						captured++
					}
				}

				// Print frame or error based on mode
				if len(validationErrors) > 0 {
					printValidationErrors(frame, validationErrors)
				} else if frame.IsEcho() {
					// Echoes are the device talking back, always worth seeing
					fmt.Print(irda.FormatFrame(frame))
				} else if monitorShowAll {
					fmt.Print(irda.FormatFrame(frame))
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}

	fmt.Println()
	fmt.Print(stats.String())
	if monitorSave != "" {
		fmt.Printf("Captured %d frame(s) to %s\n", captured, monitorSave)
	}
	return nil
}

// printDecodeError flags a framing or CRC failure in red
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> DECODE FAILED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(frame *irda.Frame, errors []irda.ValidationError) {
	timestamp := frame.Timestamp().Format("15:04:05.000")
	direction := irda.FormatDirection(frame.Direction())

	fmt.Printf("[%s] \033[1;33mVALIDATION:\033[0m %s addr=0x%02X len=%d\n",
		timestamp, direction, frame.Address(), frame.Length())
	fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case irda.ANOMALY_UNKNOWN_MODE:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case irda.ANOMALY_BANK_OVERRUN:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if slots, ok := err.Details["slots"].(int); ok {
				if capacity, ok := err.Details["capacity"].(int); ok {
					fmt.Printf("    Slots: %d, bank capacity %d\n", slots, capacity)
				}
			}

		case irda.ANOMALY_COUNT_MISMATCH:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case irda.ANOMALY_ODD_RAW_PAYLOAD:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case irda.ANOMALY_UNMAPPED_KEY:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case irda.ANOMALY_ZERO_VALUE:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	// The frame still reaches the device; show what it will see
	fmt.Print(irda.FormatPayload(frame.Direction(), frame.Payload()))
	fmt.Printf("  >>> DEVICE ABSORBS THIS SILENTLY <<<\n\n")
}
