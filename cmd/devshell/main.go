// cmd/devshell/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/devshell-sh/devshell/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// A failing child shell already reported itself; just carry the
		// exit code through.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
