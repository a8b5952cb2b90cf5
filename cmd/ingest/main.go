package main

import (
	"os"

	"github.com/driftline/ingest/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
