/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"os"

	"github.com/1063537326/video-warning-0127/internal/colors"
)

func main() {
	os.Exit(run(os.Args[1:], defaultDeps()))
}

// run executes the command line and returns the process exit code.
func run(args []string, d deps) int {
	root := NewRootCmd(d)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		colors.Error(err.Error())
		return 1
	}
	return 0
}
