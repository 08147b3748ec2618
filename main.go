// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Glucid - Lucid ADA8824 Remote Control
//
// A CLI tool for reading and changing the settings of a Lucid ADA8824
// converter over its RS232 remote port.

package main

import (
	"os"

	"github.com/Thermoquad/glucid/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
