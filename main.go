// The main package for the codecrawler executable.
package main

import (
	"github.com/JakeFAU/codecrawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
