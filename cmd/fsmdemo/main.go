// Command fsmdemo runs an example deployment pipeline on the state machine
// engine and inspects its definition.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
