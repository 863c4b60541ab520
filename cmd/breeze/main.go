package main

import (
	"fmt"
	"os"

	"breeze-trading-bot/internal/broker/breeze"
)

func main() {
	root, cleanup := newRootCmd()
	err := root.Execute()
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if r := breeze.RemedyFor(err); r != breeze.RemedyUnknown {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", r)
		}
		os.Exit(1)
	}
}
