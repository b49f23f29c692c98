// ./main.go
package main

import (
	"github.com/veritas9k/consnap-cli/cmd"
)

// main is the entry point for the consnap CLI.
func main() {
	cmd.Execute()
}
