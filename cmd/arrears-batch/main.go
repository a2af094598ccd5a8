package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// printError prints to stderr, falling back to stdout
		if _, perr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); perr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}
