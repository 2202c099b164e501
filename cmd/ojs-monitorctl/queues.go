package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

func newQueuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queues",
		Short: "List and act on queues",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List queues with their queued job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queues, err := mon.ListQueues(cmd.Context(), instance)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(queues)
			}
			tw := newTable()
			fmt.Fprintln(tw, "QUEUE\tQUEUED")
			for _, q := range queues {
				fmt.Fprintf(tw, "%s\t%d\n", q.Name, q.JobCount)
			}
			return tw.Flush()
		},
	}

	var deleteAll bool
	del := &cobra.Command{
		Use:   "delete [QUEUE...]",
		Short: "Delete queues and every job in them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteAll == (len(args) > 0) {
				return core.NewInvalidRequestError("Name at least one queue or pass --all.", nil)
			}
			queues := args
			if deleteAll {
				queues = nil
			}
			result, err := mon.DeleteQueues(cmd.Context(), instance, queues)
			if err != nil {
				return err
			}
			return printBatch("delete", result)
		},
	}
	del.Flags().BoolVar(&deleteAll, "all", false, "delete every registered queue")

	empty := &cobra.Command{
		Use:   "empty QUEUE",
		Short: "Remove every queued job from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mon.EmptyQueue(cmd.Context(), instance, args[0]); err != nil {
				return err
			}
			fmt.Printf("queue %s emptied\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, del, empty)
	return cmd
}

func newMemoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Show the memory used by the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			used, err := mon.MemoryUsed(cmd.Context(), instance)
			if err != nil {
				return err
			}
			fmt.Println(used)
			return nil
		},
	}
}
