package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"climatecentre/internal/climatectl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := climatectl.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
