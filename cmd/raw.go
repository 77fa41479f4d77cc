// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

var rawFile string

var rawCmd = &cobra.Command{
	Use:   "raw [WORD...]",
	Short: "Send a raw mark/space burst",
	Long: `Queue a raw carrier burst on the peripheral.

Each argument is one 16-bit duration word in hex microseconds; words
alternate mark/space starting with a mark and are replayed as a single
burst on the next scheduler cycle. A zero word ends the burst early, so
mid-burst zeros only make sense for trimming a stored bank.

With --file, the words are taken from the first raw-mode write found in a
capture recorded by 'monitor --save'. This is the quickest way to clone an
unknown remote: capture the bridge traffic once, then replay the burst at
the real appliance.

Examples:
  artik-ir raw --port /dev/ttyUSB0 2328 1194 232 232 232 690
  artik-ir raw --port /dev/ttyUSB0 --file lamp_on.irc`,
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
	rawCmd.Flags().StringVar(&rawFile, "file", "", "Capture file to take the burst from")
}

func runRaw(cmd *cobra.Command, args []string) error {
	var words []uint16
	var err error

	switch {
	case rawFile != "" && len(args) > 0:
		return fmt.Errorf("either hex words or --file, not both")
	case rawFile != "":
		words, err = burstFromCapture(rawFile)
		if err != nil {
			return err
		}
	case len(args) > 0:
		words, err = parseBurstWords(args)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("nothing to send: give hex words or --file")
	}

	if len(words) > irda.RawBufferSize {
		return fmt.Errorf("burst too long: %d words (bank holds %d)", len(words), irda.RawBufferSize)
	}

	frame := irda.NewRawWrite(busAddress, words)
	printFrameWarnings(frame)

	wire, err := frame.Encode()
	if err != nil {
		return fmt.Errorf("encode failed: %v", err)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	if _, err := conn.Write(wire); err != nil {
		return fmt.Errorf("send failed: %v", err)
	}

	total := irda.PulseDuration(irda.BurstPulses(words))
	fmt.Printf("Sent %d duration word(s) to 0x%02X, %v burst (%d bytes on the wire)\n",
		len(words), busAddress, total, len(wire))

	return nil
}

// parseBurstWords parses hex duration words from the command line
func parseBurstWords(args []string) ([]uint16, error) {
	words := make([]uint16, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 16)
		if err != nil {
			return nil, fmt.Errorf("bad duration word %q: want 16-bit hex", arg)
		}
		words = append(words, uint16(v))
	}
	return words, nil
}

// burstFromCapture extracts the first raw-mode write from a capture file
func burstFromCapture(path string) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %v", err)
	}
	defer f.Close()

	reader := irda.NewCaptureReader(f)
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no raw-mode write in %s", path)
		}
		if err != nil {
			return nil, fmt.Errorf("capture read failed: %v", err)
		}
		if !frame.IsWrite() || frame.Mode() != irda.ModeRaw {
			continue
		}

		data := frame.Payload()[1:]
		words := make([]uint16, 0, len(data)/2)
		for i := 0; i+1 < len(data); i += 2 {
			words = append(words, uint16(data[i])<<8|uint16(data[i+1]))
		}
		if len(data)%2 != 0 {
			fmt.Printf("\033[1;33mWARNING:\033[0m capture payload has a dangling byte, dropped\n")
		}
		return words, nil
	}
}
