package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reelsmith-desktop/internal/server"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON HTTP API",
	Long: `Start the HTTP API on HTTP_ADDR (or --addr) together with the
housekeeping scheduler. Stop with Ctrl+C.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	if err := svc.StartBackground(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving ReelSmith API on http://%s/api/v1\n", addr)
	return server.New(svc).Run(ctx, addr)
}
