// Command ledgerctl runs administrative tasks against the ledger database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledger/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
