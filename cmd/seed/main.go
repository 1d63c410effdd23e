/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Command seed writes a generated ticket dataset into one of the stores the
// API can read from.
package main

import (
    "os"
)

func main() {
    if err := newRootCmd().Execute(); err != nil {
        os.Stderr.WriteString("Error: " + err.Error() + "\n")
        os.Exit(1)
    }
}
