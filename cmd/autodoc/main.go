package main

import (
	"fmt"
	"os"
)

const (
	ExitSuccess = 0
	ExitError   = 2
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitError)
	}
}
