package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/CBICA/greedy/internal/rerr"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor classifies an error per the engine's error taxonomy and
// prints the single "ABORTING <kind>: <message>" line the top-level
// driver owns; core packages only ever return errors.
func exitCodeFor(err error) int {
	var inputErr *rerr.InputError
	var configErr *rerr.ConfigError
	var fatalErr *rerr.FatalError

	switch {
	case errors.As(err, &inputErr):
		fmt.Fprintf(os.Stderr, "ABORTING input error: %s\n", err)
		return 2
	case errors.As(err, &configErr):
		fmt.Fprintf(os.Stderr, "ABORTING configuration error: %s\n", err)
		return 2
	case errors.As(err, &fatalErr):
		fmt.Fprintf(os.Stderr, "ABORTING fatal error: %s\n", err)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "ABORTING error: %s\n", err)
		return 1
	}
}
