// Command docportal runs the document pipeline as an MCP tool server, as a
// queue worker, or as a client that submits batches to that worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "docportal",
	Short: "Document normalization, extraction and identity matching",
	Long: `docportal turns photos and scans of invoices, receipts, store reports and
identity cards into structured, validated records.

Configuration comes from the environment (and .env), optionally layered over
a YAML file named by DOCPORTAL_CONFIG. Logs go to stderr.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
