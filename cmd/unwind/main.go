package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/unwindhq/unwind/internal/cli"
	"github.com/unwindhq/unwind/internal/manual"
)

func main() {
	err := cli.Execute()
	if err == nil {
		return
	}

	var exit *cli.ExitError
	switch {
	case errors.As(err, &exit):
		os.Exit(exit.Code)
	case errors.Is(err, manual.ErrAborted):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(4)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}
