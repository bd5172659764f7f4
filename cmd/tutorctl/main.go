// Command tutorctl is the administration CLI of the tutoring desk. It reads
// the same environment as the web server and works on the configured backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tutordesk/internal/cli"
	"tutordesk/internal/format"
	applog "tutordesk/internal/log"
	"tutordesk/internal/receipt"
	"tutordesk/internal/services"
)

// app holds what the subcommands share. Tests fill ledger and formatter
// directly; otherwise they are opened from the environment before a command runs.
type app struct {
	ledger    *services.Ledger
	formatter *format.Formatter
	renderer  *receipt.Renderer
	out       io.Writer
	close     func() error
}

func main() {
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "tutorctl",
		Short:        "Administer students, payments and receipts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.close == nil {
				return nil
			}
			return a.close()
		},
	}
	root.SetOut(a.out)

	root.AddCommand(
		newSummaryCmd(a),
		newStudentsCmd(a),
		newPaymentsCmd(a),
		newTrackingCmd(a),
		newReceiptCmd(a),
		newLevelsCmd(a),
		newSheetsAuthCmd(),
	)
	return root
}

// open builds the ledger from the environment unless one is already set.
func (a *app) open(ctx context.Context) error {
	if a.ledger != nil {
		if a.renderer == nil {
			a.renderer = receipt.NewRenderer()
		}
		return nil
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	rt, err := cli.Open(openCtx, cfg, logger.Slog())
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}

	a.ledger = rt.Ledger
	a.formatter = rt.Formatter
	a.renderer = receipt.NewRenderer(receipt.WithFont(cfg.ReceiptFont))
	a.close = rt.Close
	return nil
}
