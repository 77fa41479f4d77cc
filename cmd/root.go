// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

// Persistent tunnel flags, shared by every subcommand.
var (
	portName string
	baudRate int

	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// 7-bit register-file address the peripheral answers on
	busAddress uint8
)

var rootCmd = &cobra.Command{
	Use:   "artik-ir",
	Short: "Artik infrared peripheral toolkit",
	Long: `artik-ir - A CLI tool for driving and monitoring the Artik infrared peripheral.

Sends remote-control keys and raw carrier bursts, probes a live peripheral,
monitors and captures tunnel traffic, and runs an interactive remote TUI.

The peripheral is reached over a serial bench adapter (--port) or a
WebSocket relay (--url). When --username is set, the relay password comes
from the ARTIK_PASSWORD environment variable or an interactive prompt;
there is no --password flag, so credentials stay out of shell history.`,
	Version: "1.2.0",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&portName, "port", "p", "", "Serial device of the bench adapter")
	pf.IntVarP(&baudRate, "baud", "b", 115200, "Serial baud rate")
	pf.StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	pf.StringVar(&wsUsername, "username", "", "HTTP Basic auth username")
	pf.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	pf.Uint8Var(&busAddress, "address", irda.DefaultAddress, "Register-file address of the peripheral")
}

// Execute dispatches the selected subcommand.
func Execute() error {
	return rootCmd.Execute()
}
