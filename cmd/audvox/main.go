// SPDX-License-Identifier: EPL-2.0

// Command audvox plays, renders and inspects audio through the voice engine.
package main

import (
	"fmt"
	"os"

	"github.com/ik5/audvox/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "audvox:", err)
		os.Exit(1)
	}
}
