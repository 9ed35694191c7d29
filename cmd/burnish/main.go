package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess          = 0 // Target score reached
	ExitTargetNotReached = 1 // Loop ended below the target (plateau, budget, stop)
	ExitError            = 2 // Configuration or runtime error
)

// TargetNotReachedError indicates that the polish session completed cleanly,
// but the composite score ended below the configured target.
type TargetNotReachedError struct {
	Message string
}

func (e *TargetNotReachedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var targetErr *TargetNotReachedError
		if errors.As(err, &targetErr) {
			os.Exit(ExitTargetNotReached)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
