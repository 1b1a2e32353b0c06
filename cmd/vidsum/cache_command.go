package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"vidsum/internal/httpapi"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or remove cache entries",
	}
	cmd.AddCommand(newCacheLookupCommand(ctx))
	cmd.AddCommand(newCacheShowCommand(ctx))
	cmd.AddCommand(newCacheDeleteCommand(ctx))
	cmd.AddCommand(newCacheGCCommand(ctx))
	return cmd
}

func newCacheLookupCommand(ctx *commandContext) *cobra.Command {
	var sourceURL, fileID, fileHash string

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Check whether a cache entry already exists, without enqueueing work",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := httpapi.LookupRequest{}
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

			result, err := ctx.client().Lookup(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("cache_key: %s\nhit:       %t\n", result.CacheKey, result.Hit)
			if result.Status != "" {
				fmt.Printf("status:    %s\n", result.Status)
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
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <cache_key>",
		Short: "Show a cache entry's full record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := ctx.client().CacheEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendRow(table.Row{"cache_key", entry.CacheKey})
			tw.AppendRow(table.Row{"source_type", entry.SourceType})
			tw.AppendRow(table.Row{"source_ref", entry.SourceRef})
			tw.AppendRow(table.Row{"source_name", entry.SourceName})
			tw.AppendRow(table.Row{"status", entry.Status})
			tw.AppendRow(table.Row{"profile_version", entry.ProfileVersion})
			tw.AppendRow(table.Row{"bundle_path", entry.BundlePath})
			if entry.Error != "" {
				tw.AppendRow(table.Row{"error", entry.Error})
			}
			tw.AppendRow(table.Row{"created", humanize.Time(entry.CreatedAt)})
			tw.AppendRow(table.Row{"updated", humanize.Time(entry.UpdatedAt)})
			tw.AppendRow(table.Row{"last_accessed", humanize.Time(entry.LastAccessed)})
			fmt.Println(tw.Render())

			if entry.SummaryText != "" {
				fmt.Printf("\n%s\n", entry.SummaryText)
			}
			return nil
		},
	}
}

func newCacheGCCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Run one retention sweep against ttl_days, failed_ttl_hours, and max_bytes",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.client().GC(cmd.Context())
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendRow(table.Row{"expired_removed", result.ExpiredRemoved})
			tw.AppendRow(table.Row{"failed_removed", result.FailedRemoved})
			tw.AppendRow(table.Row{"oversize_removed", result.OversizeRemoved})
			tw.AppendRow(table.Row{"bytes_freed", humanize.Bytes(uint64(result.BytesFreed))})
			fmt.Println(tw.Render())
			return nil
		},
	}
}

func newCacheDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <cache_key>",
		Short: "Remove a cache entry and its bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().DeleteCacheEntry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}
