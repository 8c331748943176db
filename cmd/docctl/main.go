// Command docctl is the operator CLI: migrations, user seeding, SAF-T exports
// and dead letter queue inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "docctl",
	Short:         "Operator tooling for the documentiulia API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedUserCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(validateCUICmd())
	rootCmd.AddCommand(saftCmd())
	rootCmd.AddCommand(dlqCmd())
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the same environment as the API server.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
