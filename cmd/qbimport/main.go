// Command qbimport is the operator CLI for the question bank: it writes the
// CSV template, validates files offline and runs confirmed imports straight
// against the database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Overload()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "qbimport",
		Short:         "Bulk import bilingual quiz questions from CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr(), logLevel, logFormat)
	}

	root.AddCommand(
		newTemplateCmd(),
		newValidateCmd(),
		newImportCmd(),
		newTokenCmd(),
	)
	return root
}
