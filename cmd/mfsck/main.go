/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */
package main

import (
	"os"
)

var (
	release = "0.0.0"
	commit  = ""
	date    = "Thu, 01 Jan 1970 00:00:00 +0000"
)

func main() {
	commandInit()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitUsage)
	}
	os.Exit(lastExitCode)
}
