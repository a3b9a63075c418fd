package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anfisaforfriends/anfisa/internal/kernel"
)

// queue:work only sees jobs dispatched by other processes when
// CACHE_DRIVER=redis; the memory queue is per process.
func queueWorkCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "queue:work",
		Short: "Process queued jobs until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := kernel.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			if workers < 1 {
				workers = 1
			}
			if k.Delayed != nil {
				go k.Delayed(cmd.Context())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
			k.Queue.Work(cmd.Context(), workers).Wait()
			fmt.Fprintln(cmd.OutOrStdout(), "Queue worker stopped.")
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 5, "number of concurrent workers")
	return cmd
}

func scheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule:list",
		Short: "List the scheduled tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := kernel.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			for _, t := range k.Scheduler.List() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

// schedule:run is for deployments that start the server with --schedule=false.
func scheduleRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule:run",
		Short: "Run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := kernel.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Scheduler started. Press Ctrl+C to stop.")
			k.Scheduler.Start(cmd.Context())
			return nil
		},
	}
}
