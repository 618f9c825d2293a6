package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"converto/internal/services"
)

// Exit codes: 1 for execution failures, 2 when the input was rejected.
const (
	exitFailure  = 1
	exitRejected = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitFailure
	}
	fmt.Fprintf(os.Stderr, "converto: %v\n", err)
	if services.IsClientError(err) {
		return exitRejected
	}
	return exitFailure
}
