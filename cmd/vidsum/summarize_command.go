package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidsum/internal/httpapi"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var sourceURL, fileID, fileHash, sourceName string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Request a summary for a URL or previously uploaded file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := httpapi.SummaryRequest{Refresh: refresh}
			switch {
			case sourceURL != "":
				req.SourceType = "url"
				req.SourceURL = sourceURL
			case fileID != "" || fileHash != "":
				req.SourceType = "local"
				req.FileID = fileID
				req.FileHash = fileHash
			default:
				return fmt.Errorf("one of --url, --file-id, or --file-hash is required")
			}
			req.SourceName = sourceName

			result, err := ctx.client().Summarize(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("cache_key: %s\nstatus:    %s\n", result.CacheKey, result.Status)
			if result.JobID != "" {
				fmt.Printf("job_id:    %s\n", result.JobID)
			}
			if result.SummaryText != "" {
				fmt.Printf("\n%s\n", result.SummaryText)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Remote video URL")
	cmd.Flags().StringVar(&fileID, "file-id", "", "Previously uploaded file's file_id")
	cmd.Flags().StringVar(&fileHash, "file-hash", "", "Previously uploaded file's content hash")
	cmd.Flags().StringVar(&sourceName, "name", "", "Optional display name for the source")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Recompute even if a completed entry already exists")
	return cmd
}
