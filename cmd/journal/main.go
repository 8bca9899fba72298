// Command journal is the trading journal and paper trading CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trading-journal/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
