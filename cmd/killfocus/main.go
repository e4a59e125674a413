package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "killfocus"

// exitCode ends the process with a non-zero status and prints nothing.
// The command has already reported what happened on stdout.
type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

func main() {
	os.Exit(exitStatus(NewRootCmd().Execute(), os.Stderr))
}

func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}
