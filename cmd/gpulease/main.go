package main

import (
	"fmt"
	"os"

	"github.com/hpckit/gpulease/internal/cmd"
	"github.com/hpckit/gpulease/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			// The wrapped command's exit code passes through untouched.
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "gpulease: %v\n", err)
		os.Exit(1)
	}
}
