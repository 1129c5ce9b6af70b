package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var completed bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List backend jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.backend()
			if err != nil {
				return err
			}
			jobs, err := backend.Jobs(cmd.Context(), completed)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, jobs)
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{job.ID, job.Name, titleLabel(string(job.Status)), job.CreatedAt})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Status", "Created"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "List completed jobs instead of incomplete ones")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count <source>",
		Short: "Count the images and videos in a source folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.backend()
			if err != nil {
				return err
			}
			counts, err := backend.CountFiles(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("count files: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Images: %s\n", formatCount(int64(counts.Images)))
			fmt.Fprintf(out, "Videos: %s\n", formatCount(int64(counts.Videos)))
			return nil
		},
	}
}
