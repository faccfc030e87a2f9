package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"reelsmith-desktop/internal/bootstrap"
	"reelsmith-desktop/internal/eventbus"
	"reelsmith-desktop/internal/services/export"

	"github.com/spf13/cobra"
)

var (
	exportTemplate     string
	exportOutDir       string
	exportHistoryLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run the export pipeline and inspect past runs",
	Long: `Export the media workspace with the selected template and the current
settings. Progress is printed as the pipeline advances; press Ctrl+C to
cancel a running export.

Examples:
  reelsmith export run
  reelsmith export run --template business_promo --out ./videos
  reelsmith export history`,
}

var exportRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Export the workspace and wait for the result",
	RunE:  runExportRun,
}

var exportHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent export runs",
	RunE:  runExportHistory,
}

func init() {
	exportRunCmd.Flags().StringVarP(&exportTemplate, "template", "t", "", "template id (default: the selected template)")
	exportRunCmd.Flags().StringVarP(&exportOutDir, "out", "o", "", "directory to copy the finished video into")
	exportHistoryCmd.Flags().IntVarP(&exportHistoryLimit, "limit", "n", 20, "max results")

	exportCmd.AddCommand(exportRunCmd)
	exportCmd.AddCommand(exportHistoryCmd)
}

func runExportRun(cmd *cobra.Command, args []string) error {
	out := &lockedWriter{w: cmd.OutOrStdout()}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan export.Run, 1)
	unsubscribe := svc.Export.Subscribe(func(env eventbus.Envelope[export.Event]) {
		ev := env.Payload
		if ev.Log != nil {
			fmt.Fprintf(out, "%s [%-7s] %s\n", ev.Log.Timestamp.Local().Format("15:04:05"), ev.Log.Type, ev.Log.Message)
		}
		if ev.Type == export.EventStatus && isTerminal(ev.Run.Status) {
			select {
			case done <- ev.Run:
			default:
			}
		}
	})
	defer unsubscribe()

	if _, err := svc.StartExport(ctx, bootstrap.ExportRequest{TemplateID: exportTemplate}); err != nil {
		return cliError(err, "start export")
	}

	run, err := waitForExport(ctx, done)
	if err != nil {
		return err
	}

	switch run.Status {
	case export.StatusCompleted:
		return saveArtifact(out, run.Artifact)
	case export.StatusCancelled:
		return fmt.Errorf("export cancelled")
	default:
		return fmt.Errorf("export failed: %s", run.Error)
	}
}

func waitForExport(ctx context.Context, done <-chan export.Run) (export.Run, error) {
	select {
	case run := <-done:
		return run, nil
	case <-ctx.Done():
	}

	if err := svc.Export.Cancel(); err != nil {
		return export.Run{}, fmt.Errorf("cancel export: %w", err)
	}
	select {
	case run := <-done:
		return run, nil
	case <-time.After(5 * time.Second):
		return export.Run{}, fmt.Errorf("export did not stop after cancellation")
	}
}

func saveArtifact(out *lockedWriter, artifact *export.Artifact) error {
	if artifact == nil {
		return fmt.Errorf("export finished without an artifact")
	}
	fmt.Fprintf(out, "\nExported %s (%s, %s)\n", artifact.Filename, artifact.Metadata.Resolution, humanSize(artifact.Size))
	if exportOutDir == "" {
		return nil
	}

	_, data, err := svc.Export.Download(artifact.DownloadHandle)
	if err != nil {
		return cliError(err, "download artifact")
	}
	if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", exportOutDir, err)
	}
	path := filepath.Join(exportOutDir, artifact.Filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Saved to %s\n", path)
	return nil
}

func isTerminal(status export.Status) bool {
	return status == export.StatusCompleted || status == export.StatusCancelled || status == export.StatusFailed
}

func runExportHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	jobs, err := svc.History.List(exportHistoryLimit)
	if err != nil {
		return cliError(err, "list export history")
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No exports yet")
		return nil
	}

	fmt.Fprintf(out, "%-38s %-20s %-10s %-6s %-9s %s\n", "ID", "TEMPLATE", "STATUS", "MEDIA", "DURATION", "STARTED")
	fmt.Fprintln(out, strings.Repeat("-", 105))
	for _, job := range jobs {
		fmt.Fprintf(out, "%-38s %-20s %-10s %-6d %-9s %s\n",
			job.ID, job.TemplateID, job.Status, job.MediaCount,
			export.Duration(job).Round(100*time.Millisecond), formatTime(job.StartedAt))
	}
	return nil
}
