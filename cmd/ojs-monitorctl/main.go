package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openjobspec/ojs-monitor/internal/core"
	"github.com/openjobspec/ojs-monitor/internal/monitor"
	"github.com/openjobspec/ojs-monitor/internal/server"
)

var (
	instance   int
	jsonOutput bool

	mon            *monitor.Monitor
	closePublisher func(context.Context)
)

var rootCmd = &cobra.Command{
	Use:           "ojs-monitorctl",
	Short:         "Inspect and operate job queues from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := server.LoadConfig()
		if err != nil {
			return err
		}
		instances, err := server.OpenInstances(cfg)
		if err != nil {
			return err
		}
		dispatcher, err := server.NewDispatcher(cfg)
		if err != nil {
			return err
		}
		publisher, closeFn, err := server.NewPublisher(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		closePublisher = closeFn
		mon = monitor.New(instances, dispatcher, publisher)
		return nil
	},
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	rootCmd.PersistentFlags().IntVarP(&instance, "instance", "i", 0, "index of the store instance to operate on")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(newJobsCmd(), newQueuesCmd(), newWorkersCmd(), newMemoryCmd())

	if err := execute(context.Background(), rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// execute runs the command tree and then flushes audit events and closes the
// stores, also when the command failed.
func execute(ctx context.Context, root *cobra.Command) error {
	defer shutdown()
	return root.ExecuteContext(ctx)
}

func shutdown() {
	if closePublisher != nil {
		closePublisher(context.Background())
		closePublisher = nil
	}
	if mon != nil {
		mon.Close()
		mon = nil
	}
}

// exitCode distinguishes caller mistakes (2) from operational failures (1).
func exitCode(err error) int {
	if core.HasCode(err, core.ErrCodeInvalidRequest) || core.HasCode(err, core.ErrCodeNotFound) {
		return 2
	}
	return 1
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

// printBatch reports a bulk result and fails the command when any unit failed.
func printBatch(action string, result core.BatchResult) error {
	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("%s: %d attempted, %d succeeded, %d failed\n", action, result.Attempted, result.Succeeded(), result.Failed)
		for _, f := range result.Failures {
			fmt.Printf("  %s: %s\n", f.Item, f.Error)
		}
	}
	if result.Failed > 0 {
		return fmt.Errorf("%s: %d of %d units failed", action, result.Failed, result.Attempted)
	}
	return nil
}

// selection turns a repeated flag into a selection: unset means all.
func selection(cmd *cobra.Command, name string, values []string) []string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func statusSelection(cmd *cobra.Command, values []string) ([]core.StatusKind, error) {
	names := selection(cmd, "status", values)
	if names == nil {
		return nil, nil
	}
	return core.ParseStatuses(names)
}
