package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job]",
	Short: "List housekeeping jobs or run one now",
	Long: `List the scheduled housekeeping jobs, or run one immediately by id or
name.

Examples:
  reelsmith jobs                      # List all jobs
  reelsmith jobs artifact-retention   # Run the artifact cleanup now`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	if err := svc.Scheduler.RegisterDefaults(cfg.ArtifactCleanupCron, cfg.ArtifactRetention, cfg.HistoryPruneCron, cfg.HistoryKeep); err != nil {
		return cliError(err, "register jobs")
	}

	if len(args) == 1 {
		if err := svc.Scheduler.RunNow(args[0]); err != nil {
			return cliError(err, "run job")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Job %s completed\n", args[0])
		return nil
	}

	out := cmd.OutOrStdout()
	jobs, err := svc.Scheduler.ListJobs()
	if err != nil {
		return cliError(err, "list jobs")
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-20s %-16s %-8s %s\n", "NAME", "TYPE", "CRON", "ENABLED", "LAST RUN")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, job := range jobs {
		lastRun := "-"
		if job.LastRunAt != nil {
			lastRun = *job.LastRunAt
		}
		fmt.Fprintf(out, "%-20s %-20s %-16s %-8t %s\n", job.Name, job.JobType, job.Cron, job.Enabled, lastRun)
	}
	return nil
}
