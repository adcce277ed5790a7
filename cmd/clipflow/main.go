package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitStatus carries a process exit code through cobra's error return.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		var status exitStatus
		if errors.As(err, &status) {
			os.Exit(int(status))
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
