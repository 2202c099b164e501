package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openjobspec/ojs-monitor/internal/core"
	"github.com/openjobspec/ojs-monitor/internal/monitor"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List and act on jobs",
	}
	cmd.AddCommand(newJobsListCmd(), newJobsShowCmd(), newJobActionCmd("delete", "Delete a job and its record"),
		newJobActionCmd("cancel", "Cancel a queued job"), newJobActionCmd("requeue", "Requeue a failed job"),
		newJobsClearCmd(), newJobsRequeueFailedCmd(), newJobsCancelQueuedCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	var (
		queues   []string
		statuses []string
		start    int64
		length   int64
		search   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of jobs across queues and statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := statusSelection(cmd, statuses)
			if err != nil {
				return err
			}
			page, err := mon.ListJobs(cmd.Context(), instance, monitor.JobQuery{
				Queues:   selection(cmd, "queue", queues),
				Statuses: kinds,
				Start:    start,
				Length:   length,
				Search:   search,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(page)
			}

			tw := newTable()
			fmt.Fprintln(tw, "ID\tQUEUE\tSTATUS\tTYPE\tCREATED")
			for _, j := range page.Jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.Queue, j.Status, j.Type, j.CreatedAt)
			}
			tw.Flush()
			fmt.Printf("showing %d-%d of %d\n", start+1, start+int64(len(page.Jobs)), page.Total)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queues to include (default all)")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "statuses to include (default all)")
	cmd.Flags().Int64Var(&start, "start", 0, "offset of the first job")
	cmd.Flags().Int64VarP(&length, "length", "n", 20, "number of jobs to show (1-1000)")
	cmd.Flags().StringVar(&search, "search", "", "only jobs whose type or args contain this text")
	return cmd
}

func newJobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := mon.GetJob(cmd.Context(), instance, args[0])
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}
}

func newJobActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " JOB_ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn := mon.DeleteJob
			switch action {
			case "cancel":
				fn = mon.CancelJob
			case "requeue":
				fn = mon.RequeueJob
			}

			var result core.BatchResult
			for _, id := range args {
				result.Record(id, fn(cmd.Context(), instance, id))
			}
			return printBatch(action, result)
		},
	}
}

func newJobsClearCmd() *cobra.Command {
	var queues, statuses []string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every job in the selected queue and status partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := statusSelection(cmd, statuses)
			if err != nil {
				return err
			}
			result, err := mon.ClearPartitions(cmd.Context(), instance, selection(cmd, "queue", queues), kinds)
			if err != nil {
				return err
			}
			return printBatch("clear", result)
		},
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queues to clear (default all)")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "statuses to clear (default all)")
	return cmd
}

func newJobsRequeueFailedCmd() *cobra.Command {
	var queues []string
	cmd := &cobra.Command{
		Use:   "requeue-failed",
		Short: "Requeue every failed job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := mon.RequeueAllFailed(cmd.Context(), instance, selection(cmd, "queue", queues))
			if err != nil {
				return err
			}
			return printBatch("requeue-failed", result)
		},
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queues to requeue (default all)")
	return cmd
}

func newJobsCancelQueuedCmd() *cobra.Command {
	var queues []string
	cmd := &cobra.Command{
		Use:   "cancel-queued",
		Short: "Cancel every queued job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := mon.CancelAllQueued(cmd.Context(), instance, selection(cmd, "queue", queues))
			if err != nil {
				return err
			}
			return printBatch("cancel-queued", result)
		},
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queues to cancel (default all)")
	return cmd
}
