package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect job status",
	}
	cmd.AddCommand(newJobsShowCommand(ctx))
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job_id>",
		Short: "Show a job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().JobStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendRow(table.Row{"job_id", job.JobID})
			tw.AppendRow(table.Row{"cache_key", job.CacheKey})
			tw.AppendRow(table.Row{"status", job.Status})
			if job.Error != "" {
				tw.AppendRow(table.Row{"error", job.Error})
			}
			tw.AppendRow(table.Row{"created", humanize.Time(job.CreatedAt)})
			tw.AppendRow(table.Row{"updated", humanize.Time(job.UpdatedAt)})
			fmt.Println(tw.Render())
			return nil
		},
	}
}
