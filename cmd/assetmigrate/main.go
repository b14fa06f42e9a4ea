// Command assetmigrate migrates test-management assets between providers.
package main

import (
	"context"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	runner := NewRunner(RunnerOpts{})
	if err := newRootCommand(runner).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "assetmigrate: %v\n", err)
		os.Exit(1)
	}
}
