package main

import (
	"os"

	"github.com/klinvest/broker-etrade/cmd/etrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
