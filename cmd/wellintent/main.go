// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command wellintent classifies and dispatches well-log requests locally.
//
// Usage:
//
//	wellintent classify "calculate porosity for SANDSTONE_RESERVOIR_001"
//	wellintent classify --stdin < requests.txt
//	wellintent dispatch "show me all wells"
//	wellintent catalog
//
// Output is styled on a terminal and JSON otherwise (or with --json).
package main

import "github.com/awnumar/memguard"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		memguard.SafeExit(1)
	}
	memguard.Purge()
}
