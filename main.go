// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek
//
// artik-ir - Artik Infrared Peripheral Toolkit
//
// A CLI tool for driving and monitoring the Artik infrared peripheral
// over serial or WebSocket tunnels.

package main

import (
	"os"

	"github.com/vam-vam/Artik/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
