// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tsanko9k/inkclip/cmd"
	"github.com/tsanko9k/inkclip/internal/observability"
)

// main is the entry point for the inkclip CLI.
func main() {
	// Listen for interrupt signals so in-flight scrapes shut down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
