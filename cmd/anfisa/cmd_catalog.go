package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/anfisaforfriends/anfisa/app/jobs"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/internal/kernel"
	"github.com/anfisaforfriends/anfisa/pkg/rbac"
)

func userCreateCmd() *cobra.Command {
	var in services.UserInput
	cmd := &cobra.Command{
		Use:   "user:create",
		Short: "Create a user who can sign in to the admin site and API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := kernel.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			u, err := k.Users.Create(cmd.Context(), in)
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				printFields(cmd.ErrOrStderr(), verr.Fields)
				return errors.New("user not created")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s <%s> with role %s (id %d)\n", u.Name, u.Email, u.Role, u.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.Email, "email", "", "sign-in email")
	f.StringVar(&in.Password, "password", "", "password, 8 to 72 bytes")
	f.StringVar(&in.Role, "role", rbac.RoleStaff, "one of admin, staff, user")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func printFields(w io.Writer, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, fields[k])
	}
}

func catalogExportCmd() *cobra.Command {
	var disk string
	var queued bool
	cmd := &cobra.Command{
		Use:   "catalog:export",
		Short: "Write a JSON snapshot of the catalog to storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := kernel.Boot(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			if queued {
				job := jobs.NewExportCatalog(disk)
				if err := k.Queue.Dispatch(cmd.Context(), job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued export %s -> %s\n", job.ID, job.Path())
				return nil
			}

			job, err := jobs.RunExport(cmd.Context(), k.Catalog, k.Disks, disk)
			if err != nil {
				return err
			}
			d, err := k.Disks(disk)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported catalog to %s\n", d.URL(job.Path()))
			return nil
		},
	}
	cmd.Flags().StringVar(&disk, "disk", "", "storage disk (default from STORAGE_DISK)")
	cmd.Flags().BoolVar(&queued, "queue", false, "dispatch to the queue instead of running inline")
	return cmd
}
