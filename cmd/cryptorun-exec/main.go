package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes per the engine's external contract: 0 normal, 1 config
// invalid, 2 unrecoverable runtime error, 130 SIGINT after graceful close.
const (
	exitOK            = 0
	exitConfigInvalid = 1
	exitRuntime       = 2
	exitInterrupted   = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:   "cryptorun-exec",
		Short: "Crypto derivatives execution core",
		Long: `cryptorun-exec runs the signal, risk, and execution pipeline for one
venue and symbol universe, or validates a settings bundle without trading.`,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newCheckConfigCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(exitRuntime)
	}
}
