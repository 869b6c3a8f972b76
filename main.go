// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/ormkit/ormkit/cmd"
)

func main() {
	os.Exit(cmd.Run())
}
