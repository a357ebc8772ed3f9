package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

// run is main's body factored out so testscript.RunMain can drive this
// binary's entry point as an in-process subprocess without calling
// os.Exit itself (cmd/latc/main_test.go).
func run() int {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
