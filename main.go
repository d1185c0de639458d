// Package main is the entry point for sqlbench, a terminal SQL workbench.
package main

import (
	"sqlbench/cli/cmd"
)

func main() {
	cmd.Execute()
}
