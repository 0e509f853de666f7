// The main package for the salary-predictor executable.
package main

import (
	"github.com/JakeFAU/salary-predictor/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
