// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

var (
	replaySpeed float64
	replayLoop  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Resend a captured write sequence",
	Long: `Resend the write transactions from a capture file with original timing.

Only write frames are replayed; read requests and echoes in the capture
belong to whoever recorded it. Gaps between writes follow the capture
timestamps, scaled by --speed (2 halves every gap, 0.5 doubles it).

With --loop the capture repeats until interrupted, which turns a captured
key sequence into a crude macro pad.

Examples:
  artik-ir replay --port /dev/ttyUSB0 evening.irc
  artik-ir replay --port /dev/ttyUSB0 evening.irc --speed 4 --loop`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Timing scale factor")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "Repeat the capture until interrupted")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replaySpeed <= 0 {
		return fmt.Errorf("bad --speed %g: must be positive", replaySpeed)
	}

	frames, skipped, err := loadWriteFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no write frames in %s", args[0])
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("artik-ir - Capture Replay\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Capture: %s, %d write frame(s)", args[0], len(frames))
	if skipped > 0 {
		fmt.Printf(" (%d non-write frames skipped)", skipped)
	}
	fmt.Println()
	fmt.Printf("Speed: %gx", replaySpeed)
	if replayLoop {
		fmt.Printf(", looping")
	}
	fmt.Printf("\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sent uint64
	pass := 0
	for {
		pass++
		if replayLoop {
			fmt.Printf("--- pass %d ---\n", pass)
		}
		for i, frame := range frames {
			if i > 0 {
				gap := frame.Timestamp().Sub(frames[i-1].Timestamp())
				gap = time.Duration(float64(gap) / replaySpeed)
				if gap > 0 {
					select {
					case <-ctx.Done():
						fmt.Printf("\nInterrupted, %d frame(s) sent\n", sent)
						return nil
					case <-time.After(gap):
					}
				}
			}

			wire, err := frame.Encode()
			if err != nil {
				fmt.Printf("\033[1;33mWARNING:\033[0m frame %d does not encode (%v), skipped\n", i, err)
				continue
			}
			if _, err := conn.Write(wire); err != nil {
				return fmt.Errorf("send failed after %d frame(s): %v", sent, err)
			}
			sent++
			fmt.Print(irda.FormatFrame(frame))
		}

		if !replayLoop || ctx.Err() != nil {
			break
		}
	}

	fmt.Printf("\nReplay complete, %d frame(s) sent\n", sent)
	return nil
}

// loadWriteFrames reads a capture and keeps only the write transactions
func loadWriteFrames(path string) ([]*irda.Frame, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open capture: %v", err)
	}
	defer f.Close()

	var frames []*irda.Frame
	skipped := 0
	reader := irda.NewCaptureReader(f)
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			return frames, skipped, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("capture read failed: %v", err)
		}
		if !frame.IsWrite() {
			skipped++
			continue
		}
		frames = append(frames, frame)
	}
}
