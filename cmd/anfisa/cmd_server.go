package main

import (
	"github.com/spf13/cobra"

	"github.com/anfisaforfriends/anfisa/internal/kernel"
	"github.com/anfisaforfriends/anfisa/internal/server"
)

func serveCmd() *cobra.Command {
	var opts server.Options
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run"},
		Short:   "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := kernel.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()
			return server.Start(cmd.Context(), k, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 2, "in-process queue workers (0 to use queue:work)")
	cmd.Flags().BoolVar(&opts.Schedule, "schedule", true, "run the scheduler in this process")
	return cmd
}
