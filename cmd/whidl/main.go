// Command whidl is a thin manual-exploration front end over the whidl
// compiler/simulator pipeline: parse a chip, elaborate it, run it against a
// set of input buses, or dump its truth table. It is not the project's full
// batch test-runner (see the testscript package for that), just enough of a
// CLI to drive the pipeline by hand while developing or debugging a chip.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
