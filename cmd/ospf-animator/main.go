package main

import (
	"os"

	"github.com/signalsfoundry/ospf-animator/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
