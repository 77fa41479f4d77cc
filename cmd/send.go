// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

var (
	sendRepeat    int
	sendRepeatGap time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send KEY [KEY...]",
	Short: "Send projector key presses",
	Long: `Queue one or more projector remote keys on the peripheral.

Keys are written as a single projector-mode transaction; the peripheral's
next scheduler cycle emits them as NEC frames. Names are case-insensitive
and accept common aliases (vol+, vol-, volup).

Known keys:
  power menu input ok esc mute up down left right vol_up vol_down

Stubborn appliances miss single presses, so --repeat sends the whole
transaction again after --repeat-gap.

Examples:
  artik-ir send --port /dev/ttyUSB0 power
  artik-ir send --port /dev/ttyUSB0 vol+ vol+ vol+
  artik-ir send --url ws://artik.local/bus power --repeat 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVar(&sendRepeat, "repeat", 1, "Number of times to send the transaction")
	sendCmd.Flags().DurationVar(&sendRepeatGap, "repeat-gap", time.Second, "Pause between repeated sends")
}

func runSend(cmd *cobra.Command, args []string) error {
	if len(args) > irda.MaxKeys {
		return fmt.Errorf("too many keys: %d (one transaction carries at most %d)", len(args), irda.MaxKeys)
	}

	// Resolve names before touching the connection
	keys := make([]byte, 0, len(args))
	names := make([]string, 0, len(args))
	for _, arg := range args {
		key, ok := irda.KeyForName(arg)
		if !ok {
			return fmt.Errorf("unknown key %q (known: %s)", arg, knownKeyNames())
		}
		keys = append(keys, key)
		names = append(names, irda.NameForKey(key))
	}

	frame := irda.NewKeyWrite(busAddress, keys...)
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

	if sendRepeat < 1 {
		sendRepeat = 1
	}
	for i := 0; i < sendRepeat; i++ {
		if i > 0 {
			time.Sleep(sendRepeatGap)
		}
		if _, err := conn.Write(wire); err != nil {
			return fmt.Errorf("send failed: %v", err)
		}
		fmt.Printf("Sent %d key(s) to 0x%02X: %s (%d bytes on the wire)\n",
			len(keys), busAddress, strings.Join(names, " "), len(wire))
	}

	return nil
}

// knownKeyNames lists the key table names for error messages
func knownKeyNames() string {
	names := make([]string, 0, len(irda.Keys()))
	for _, info := range irda.Keys() {
		names = append(names, strings.ToLower(info.Name))
	}
	return strings.Join(names, " ")
}

// printFrameWarnings runs pre-flight validation and prints anything the
// peripheral would silently swallow
func printFrameWarnings(f *irda.Frame) {
	for _, verr := range irda.ValidateFrame(f) {
		fmt.Printf("\033[1;33mWARNING:\033[0m %s\n", verr.Message)
	}
}
