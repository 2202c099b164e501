package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWorkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List, inspect and terminate workers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := mon.ListWorkers(cmd.Context(), instance)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(workers)
			}
			tw := newTable()
			fmt.Fprintln(tw, "NAME\tHOST\tPID\tSTATE\tQUEUES\tCURRENT JOB\tOK\tFAILED")
			for _, w := range workers {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\n",
					w.Name, w.Hostname, w.PID, w.State, strings.Join(w.Queues, ","), w.CurrentJob, w.SuccessfulJobs, w.FailedJobs)
			}
			return tw.Flush()
		},
	}

	info := &cobra.Command{
		Use:   "info NAME",
		Short: "Show one worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := mon.WorkerInfo(cmd.Context(), instance, args[0])
			if err != nil {
				return err
			}
			return printJSON(w)
		},
	}

	var all bool
	terminate := &cobra.Command{
		Use:   "terminate [NAME...]",
		Short: "Signal workers to shut down",
		Args: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("name at least one worker or pass --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 1 {
				delivery, err := mon.TerminateWorker(cmd.Context(), instance, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(delivery)
				}
				fmt.Printf("signalled %s (pid %d on %s via %s)\n", delivery.Worker, delivery.PID, delivery.Hostname, delivery.Via)
				return nil
			}

			result, err := mon.TerminateWorkers(cmd.Context(), instance, args, all)
			if err != nil {
				return err
			}
			return printBatch("terminate", result)
		},
	}
	terminate.Flags().BoolVar(&all, "all", false, "terminate every registered worker")

	cmd.AddCommand(list, info, terminate)
	return cmd
}
